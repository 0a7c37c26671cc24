// Package bugreport collects bug reports through a modal and tracks their
// status with reactions.
package bugreport

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

const (
	modalRoute   = "bugreport"
	titlePrefix  = "Rapport de bug: "
	maxBugName   = 80
	maxModalName = 45
	colorReport  = 0xED4245
)

// Status reactions, in the order they are added under a report
const (
	StatusResolved   = "✅"
	StatusInProgress = "⚙️"
	StatusOther      = "❓"
)

var statuses = []string{StatusResolved, StatusInProgress, StatusOther}

func isStatus(emoji string) bool {
	for _, s := range statuses {
		if s == emoji {
			return true
		}
	}
	return false
}

// Reporter owns the report channel
type Reporter struct {
	channelID string
}

// NewReporter creates a Reporter posting to channelID
func NewReporter(channelID string) *Reporter {
	return &Reporter{channelID: channelID}
}

// ChannelID returns the report channel
func (r *Reporter) ChannelID() string {
	return r.channelID
}

// RegisterBugReportCommands registers /report-bug and its modal
func RegisterBugReportCommands(client *discord.ExtendedClient, r *Reporter) {
	client.CommandHandler.RegisterCommand(r.createReportCommand())
	client.CommandHandler.RegisterModal(modalRoute, r.submit)
}

func (r *Reporter) createReportCommand() *discord.Command {
	return discord.NewCommand(
		"report-bug",
		"Signaler un bug",
		"bugreport",
		func(ctx *discord.CommandContext) error {
			name := strings.TrimSpace(ctx.GetStringOption("nom"))
			if name == "" {
				return ctx.ReplyEphemeral("⚠️ Donne un nom au bug.")
			}
			return ctx.ReplyModal(discord.CustomID(modalRoute, name), modalTitle(name), reportFields()...)
		},
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "nom",
		Description: "Nom du bug en quelques mots (ex : Problème de connexion, Erreur en lobby)",
		Required:    true,
		MaxLength:   maxBugName,
	})
}

func modalTitle(name string) string {
	title := "Signaler un bug : " + name
	if utf8.RuneCountInString(title) <= maxModalName {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxModalName-1]) + "…"
}

func reportFields() []discordgo.TextInput {
	return []discordgo.TextInput{
		{
			CustomID:    "type",
			Label:       "Type de bug",
			Placeholder: "Ex : Lobby, Mini-jeu, Hub, ...",
			Style:       discordgo.TextInputShort,
			Required:    true,
			MaxLength:   100,
		},
		{
			CustomID:    "steps",
			Label:       "Comment réaliser ce bug",
			Placeholder: "Décris étape par étape comment reproduire le bug.",
			Style:       discordgo.TextInputParagraph,
			Required:    true,
			MaxLength:   1000,
		},
		{
			CustomID:    "description",
			Label:       "Description détaillée",
			Placeholder: "Ajoute toutes les informations utiles sur ce bug.",
			Style:       discordgo.TextInputParagraph,
			Required:    true,
			MaxLength:   1000,
		},
	}
}

func (r *Reporter) submit(ctx *discord.ModalContext) error {
	if r.channelID == "" {
		return ctx.ReplyEphemeral("⚠️ Salon de rapport introuvable.")
	}

	user := ctx.User()
	embed := reportEmbed(ctx.Payload(), ctx.Value("type"), ctx.Value("steps"), ctx.Value("description"), user)

	msg, err := ctx.Session.ChannelMessageSendEmbed(r.channelID, embed)
	if err != nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("❌ Erreur lors de l'envoi du rapport : %v", err))
	}
	for _, s := range statuses {
		if err := ctx.Session.MessageReactionAdd(r.channelID, msg.ID, s); err != nil {
			logger.Warn("Réaction de statut impossible : "+err.Error(), "BugReport")
		}
	}

	logger.Info(fmt.Sprintf("Rapport de bug %q envoyé par %s", ctx.Payload(), user.ID), "BugReport")
	return ctx.ReplyEphemeral("✅ Rapport envoyé avec succès !")
}

func reportEmbed(name, kind, steps, description string, user *discordgo.User) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: titlePrefix + name,
		Color: colorReport,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Type de bug", Value: kind},
			{Name: "Comment réaliser ce bug", Value: steps},
			{Name: "Description détaillée", Value: description},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Signalé par %s (%s)", user.Username, user.ID),
		},
	}
}

// baseName extracts the bug name from a report title, with or without a
// status prefix
func baseName(title string) (string, bool) {
	if strings.HasPrefix(title, "[") {
		if i := strings.Index(title, "] "); i > 0 {
			title = title[i+2:]
		}
	}
	name, ok := strings.CutPrefix(title, titlePrefix)
	return strings.TrimSpace(name), ok
}

func statusTitle(name, emoji string) string {
	if emoji == "" {
		return titlePrefix + name
	}
	return fmt.Sprintf("[%s] %s%s", emoji, titlePrefix, name)
}
