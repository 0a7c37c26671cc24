package leveling

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
	"github.com/MimirCommunity/MimirBot/pkg/xp"
)

const (
	colorXP     = 0x5865F2
	progressLen = 12
)

func createXPCommand(engine Engine) *discord.Command {
	return discord.NewCommand(
		"xp",
		"Affiche l'XP et le niveau d'un membre",
		"xp",
		func(ctx *discord.CommandContext) error {
			return xpHandler(ctx, engine)
		},
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "membre",
		Description: "Le membre à consulter (toi par défaut)",
	}).InGuildOnly()
}

func xpHandler(ctx *discord.CommandContext, engine Engine) error {
	target := ctx.GetUserOption("membre")
	if target == nil {
		target = ctx.User()
	}

	p, err := engine.GetProgress(ctx.Context(), ctx.Interaction.GuildID, target.ID)
	if errors.Is(err, xp.ErrStoreUnavailable) {
		return ctx.ReplyEphemeral("⚠️ Le stockage de l'XP est momentanément indisponible, réessaie plus tard.")
	}
	if err != nil {
		return err
	}

	return ctx.ReplyEphemeralEmbed(progressEmbed(target, p, engine.Curve()))
}

func progressEmbed(user *discordgo.User, p xp.Progress, curve xp.Curve) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✨ Progression de " + user.Username,
		Description: user.Mention(),
		Color:       colorXP,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Niveau", Value: fmt.Sprintf("%d", p.Level), Inline: true},
			{Name: "XP", Value: fmt.Sprintf("%d", p.XP), Inline: true},
			{Name: "Prochain niveau", Value: fmt.Sprintf("encore %d XP", p.XPToNextLevel), Inline: true},
			{Name: "Progression", Value: progressBar(p.XP, curve)},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// progressBar renders how far xp is between the current and next level
func progressBar(amount int64, curve xp.Curve) string {
	level := curve.Level(amount)
	low, high := curve.Threshold(level), curve.Threshold(level+1)

	filled := 0
	if span := high - low; span > 0 {
		filled = int((amount - low) * progressLen / span)
	}
	filled = max(0, min(filled, progressLen))

	return fmt.Sprintf("`%s%s` %d/%d", strings.Repeat("█", filled), strings.Repeat("░", progressLen-filled), amount-low, high-low)
}
