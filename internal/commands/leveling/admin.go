package leveling

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
)

func createAdjustCommand(engine Engine) *discord.Command {
	return discord.NewCommand(
		"xp-adjust",
		"Ajoute ou retire de l'XP à un membre",
		"xp",
		func(ctx *discord.CommandContext) error {
			return adjustHandler(ctx, engine)
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "membre",
			Description: "Le membre à ajuster",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "montant",
			Description: "XP à ajouter (négatif pour retirer)",
			Required:    true,
		},
	).WithUserPermissions(discordgo.PermissionManageGuild).InGuildOnly()
}

func adjustHandler(ctx *discord.CommandContext, engine Engine) error {
	target := ctx.GetUserOption("membre")
	amount, ok := ctx.GetIntOption("montant")
	if target == nil || !ok {
		return ctx.ReplyEphemeral("⚠️ Indique un membre et un montant.")
	}
	if amount == 0 {
		return ctx.ReplyEphemeral("⚠️ Un ajustement de 0 XP ne change rien.")
	}

	after, err := engine.AdjustXP(ctx.Context(), ctx.Interaction.GuildID, target.ID, amount, ctx.User().ID)
	if err != nil {
		return err
	}

	return ctx.ReplyEphemeral(fmt.Sprintf("✅ XP de %s ajusté de **%+d** : %d XP, niveau %d.",
		target.Mention(), amount, after.XP, after.Level))
}

func createExcludeCommand(engine Engine) *discord.Command {
	return discord.NewCommand(
		"xp-exclude",
		"Active ou désactive le gain d'XP dans un salon",
		"xp",
		func(ctx *discord.CommandContext) error {
			return excludeHandler(ctx, engine)
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionChannel,
			Name:        "salon",
			Description: "Le salon concerné (liste les salons exclus si absent)",
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "exclu",
			Description: "true pour exclure, false pour réactiver (true par défaut)",
		},
	).WithUserPermissions(discordgo.PermissionManageGuild).InGuildOnly()
}

func excludeHandler(ctx *discord.CommandContext, engine Engine) error {
	guildID := ctx.Interaction.GuildID

	opt := ctx.GetOption("salon")
	if opt == nil {
		ids, err := engine.ExcludedChannels(ctx.Context(), guildID)
		if err != nil {
			return err
		}
		return ctx.ReplyEphemeral(excludedList(ids))
	}

	channelID := opt.ChannelValue(nil).ID
	excluded := true
	if ctx.GetOption("exclu") != nil {
		excluded = ctx.GetBoolOption("exclu")
	}

	if err := engine.SetChannelExcluded(ctx.Context(), guildID, channelID, excluded); err != nil {
		return err
	}

	if excluded {
		return ctx.ReplyEphemeral(fmt.Sprintf("🚫 <#%s> ne rapporte plus d'XP.", channelID))
	}
	return ctx.ReplyEphemeral(fmt.Sprintf("✅ <#%s> rapporte de nouveau de l'XP.", channelID))
}

func excludedList(ids []string) string {
	if len(ids) == 0 {
		return "Aucun salon n'est exclu du gain d'XP."
	}
	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, "<#"+id+">")
	}
	return "🚫 Salons exclus du gain d'XP :\n- " + strings.Join(mentions, "\n- ")
}
