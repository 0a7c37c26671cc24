package games

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

const (
	renameRoute = "rename"
	renameField = "content"
	maxContent  = 2000
)

func createRenameCommand() *discord.Command {
	return discord.NewCommand(
		"rename",
		"Modifie un message du bot à partir de son ID",
		"games",
		renameHandler,
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "message_id",
		Description: "L'ID du message à modifier",
		Required:    true,
	}).WithUserPermissions(discordgo.PermissionManageMessages).InGuildOnly()
}

func renameHandler(ctx *discord.CommandContext) error {
	messageID := strings.TrimSpace(ctx.GetStringOption("message_id"))
	channelID := ctx.Interaction.ChannelID

	msg, err := ctx.Session.ChannelMessage(channelID, messageID)
	if err != nil {
		return ctx.ReplyEphemeral("⚠️ Message introuvable.")
	}
	if msg.Author == nil || msg.Author.ID != ctx.Session.State.User.ID {
		return ctx.ReplyEphemeral("⚠️ Ce message n'a pas été envoyé par le bot.")
	}

	return ctx.ReplyModal(discord.CustomID(renameRoute, renamePayload(channelID, messageID)), "Renommer un message", discordgo.TextInput{
		CustomID:  renameField,
		Label:     "Nouveau contenu",
		Style:     discordgo.TextInputParagraph,
		Value:     msg.Content,
		Required:  true,
		MaxLength: maxContent,
	})
}

func renamePayload(channelID, messageID string) string {
	return channelID + ":" + messageID
}

func parseRenamePayload(payload string) (channelID, messageID string, ok bool) {
	channelID, messageID, ok = strings.Cut(payload, ":")
	return channelID, messageID, ok && channelID != "" && messageID != ""
}

func renameSubmit(ctx *discord.ModalContext) error {
	channelID, messageID, ok := parseRenamePayload(ctx.Payload())
	if !ok {
		return fmt.Errorf("rename: bad modal payload %q", ctx.Payload())
	}

	content := ctx.Value(renameField)
	if content == "" {
		return ctx.ReplyEphemeral("⚠️ Le nouveau contenu ne peut pas être vide.")
	}

	if _, err := ctx.Session.ChannelMessageEdit(channelID, messageID, content); err != nil {
		return ctx.ReplyEphemeral(fmt.Sprintf("❌ Erreur lors de la modification du message : %v", err))
	}

	logger.Info(fmt.Sprintf("Message %s modifié par %s", messageID, ctx.User().ID), "Games")
	return ctx.ReplyEphemeral("✅ Message renommé avec succès !")
}
