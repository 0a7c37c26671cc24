package absences

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
	"github.com/MimirCommunity/MimirBot/pkg/models"
)

const maxReason = 500

func createChannelCommand(store Store) *discord.Command {
	return discord.NewCommand(
		"absence-channel",
		"Définit le salon où sont annoncées les absences",
		"absences",
		func(ctx *discord.CommandContext) error {
			if !ctx.HasPermission(discordgo.PermissionAdministrator) {
				return ctx.ReplyEphemeral("⛔ Seuls les administrateurs peuvent utiliser cette commande.")
			}

			channel := ctx.GetOption("salon").ChannelValue(nil)
			if err := store.SetChannel(ctx.Context(), ctx.Interaction.GuildID, channel.ID); err != nil {
				return err
			}
			return ctx.ReplyEphemeral(fmt.Sprintf("✅ Salon des absences défini sur <#%s>.", channel.ID))
		},
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "salon",
		Description:  "Le salon des absences",
		Required:     true,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
	}).InGuildOnly()
}

func createAbsenceCommand(store Store) *discord.Command {
	return discord.NewCommand(
		"absence",
		"Déclare une absence",
		"absences",
		func(ctx *discord.CommandContext) error {
			return absenceHandler(ctx, store)
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "debut",
			Description: "Premier jour d'absence (AAAA-MM-JJ)",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "fin",
			Description: "Dernier jour d'absence (AAAA-MM-JJ)",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "raison",
			Description: "La raison de ton absence",
			Required:    true,
			MaxLength:   maxReason,
		},
	).InGuildOnly()
}

func absenceHandler(ctx *discord.CommandContext, store Store) error {
	start, end, err := parseRange(ctx.GetStringOption("debut"), ctx.GetStringOption("fin"), time.Local)
	if errors.Is(err, ErrBadDate) || errors.Is(err, ErrEndFirst) {
		return ctx.ReplyEphemeral("⚠️ " + err.Error())
	}
	if err != nil {
		return err
	}
	if !end.After(time.Now()) {
		return ctx.ReplyEphemeral("⚠️ Cette absence est déjà terminée.")
	}

	reason := strings.TrimSpace(ctx.GetStringOption("raison"))
	if reason == "" {
		return ctx.ReplyEphemeral("⚠️ Merci d'indiquer une raison.")
	}

	guildID := ctx.Interaction.GuildID
	channelID, err := store.Channel(ctx.Context(), guildID)
	if err != nil {
		return err
	}
	if channelID == "" {
		return ctx.ReplyEphemeral("⚠️ Aucun salon d'absence défini.")
	}

	user := ctx.User()
	msg, err := ctx.Session.ChannelMessageSend(channelID, announce(user.ID, start, end, reason))
	if err != nil {
		return fmt.Errorf("absences: announce: %w", err)
	}

	err = store.Add(ctx.Context(), models.Absence{
		ID:        msg.ID,
		GuildID:   guildID,
		UserID:    user.ID,
		ChannelID: channelID,
		Start:     start,
		End:       end,
		Reason:    reason,
	})
	if err != nil {
		_ = ctx.Session.ChannelMessageDelete(channelID, msg.ID)
		return err
	}

	logger.Info(fmt.Sprintf("Absence de %s enregistrée jusqu'au %s", user.ID, end.Format(time.RFC3339)), "Absences")
	return ctx.ReplyEphemeral("✅ Absence enregistrée avec succès !")
}

func createRemoveCommand(store Store) *discord.Command {
	return discord.NewCommand(
		"absence-remove",
		"Supprime une absence enregistrée",
		"absences",
		func(ctx *discord.CommandContext) error {
			target := ctx.User()
			if other := ctx.GetUserOption("membre"); other != nil && other.ID != target.ID {
				if !ctx.HasPermission(discordgo.PermissionAdministrator) {
					return ctx.ReplyEphemeral("⛔ Seuls les administrateurs peuvent supprimer l'absence d'un autre membre.")
				}
				target = other
			}

			removed, err := store.RemoveForUser(ctx.Context(), ctx.Interaction.GuildID, target.ID)
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				return ctx.ReplyEphemeral("⚠️ Aucune absence trouvée.")
			}

			for _, a := range removed {
				if err := ctx.Session.ChannelMessageDelete(a.ChannelID, a.ID); err != nil {
					logger.Debug("Annonce d'absence déjà supprimée : "+a.ID, "Absences")
				}
			}
			return ctx.ReplyEphemeral(fmt.Sprintf("✅ Absence de %s supprimée.", target.Mention()))
		},
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "membre",
		Description: "Le membre concerné (administrateurs uniquement)",
	}).InGuildOnly()
}
