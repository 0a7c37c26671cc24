package participation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/database"
	"github.com/MimirCommunity/MimirBot/pkg/discord"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

const maxEventName = 100

func eventNameOption(autocomplete bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         "nom",
		Description:  "Nom de l'événement",
		Required:     true,
		MaxLength:    maxEventName,
		Autocomplete: autocomplete,
	}
}

func createEventAddCommand(store Store) *discord.Command {
	return discord.NewCommand(
		"event-add",
		"Ajoute un nouvel événement organisé",
		"events",
		func(ctx *discord.CommandContext) error {
			name := strings.TrimSpace(ctx.GetStringOption("nom"))
			if name == "" {
				return ctx.ReplyEphemeral("⚠️ Le nom de l'événement ne peut pas être vide.")
			}

			err := store.Add(ctx.Context(), ctx.Interaction.GuildID, name)
			if errors.Is(err, database.ErrEventExists) {
				return ctx.ReplyEphemeral(fmt.Sprintf("⚠️ L'événement **%s** existe déjà !", name))
			}
			if err != nil {
				return err
			}
			return ctx.ReplyEphemeral(fmt.Sprintf("✅ L'événement **%s** a été ajouté !", name))
		},
	).WithOptions(eventNameOption(false)).
		WithUserPermissions(discordgo.PermissionAdministrator).
		InGuildOnly()
}

func createEventRemoveCommand(store Store) *discord.Command {
	return discord.NewCommand(
		"event-remove",
		"Supprime un événement existant",
		"events",
		func(ctx *discord.CommandContext) error {
			name := ctx.GetStringOption("nom")

			err := store.Remove(ctx.Context(), ctx.Interaction.GuildID, name)
			if errors.Is(err, database.ErrEventNotFound) {
				return ctx.ReplyEphemeral(fmt.Sprintf("⚠️ L'événement **%s** n'existe pas !", name))
			}
			if err != nil {
				return err
			}
			return ctx.ReplyEphemeral(fmt.Sprintf("✅ L'événement **%s** a été supprimé !", name))
		},
	).WithOptions(eventNameOption(true)).
		WithUserPermissions(discordgo.PermissionAdministrator).
		WithAutoComplete(autocompleteEvents(store)).
		InGuildOnly()
}

func createEventDefineCommand(store Store) *discord.Command {
	return discord.NewCommand(
		"event-define",
		"Ajoute ou retire un membre d'un événement",
		"events",
		func(ctx *discord.CommandContext) error {
			user := ctx.GetUserOption("membre")
			name := ctx.GetStringOption("nom")
			if user == nil {
				return ctx.ReplyEphemeral("⚠️ Indique un membre.")
			}

			added, err := store.Toggle(ctx.Context(), ctx.Interaction.GuildID, user.ID, name)
			if errors.Is(err, database.ErrEventNotFound) {
				return ctx.ReplyEphemeral(fmt.Sprintf("⚠️ L'événement **%s** n'existe pas !", name))
			}
			if err != nil {
				return err
			}

			logger.Info(fmt.Sprintf("Participation de %s à %q : %t", user.ID, name, added), "Events")
			return ctx.ReplyEphemeral(toggleMessage(user.Mention(), name, added))
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "membre",
			Description: "Le membre concerné",
			Required:    true,
		},
		eventNameOption(true),
	).WithUserPermissions(discordgo.PermissionAdministrator).
		WithAutoComplete(autocompleteEvents(store)).
		InGuildOnly()
}

func createEventsCommand(store Store) *discord.Command {
	return discord.NewCommand(
		"events",
		"Affiche les événements auxquels un membre a participé",
		"events",
		func(ctx *discord.CommandContext) error {
			user := ctx.GetUserOption("membre")
			if user == nil {
				user = ctx.User()
			}

			names, err := store.Participations(ctx.Context(), ctx.Interaction.GuildID, user.ID)
			if err != nil {
				return err
			}
			return ctx.Reply(participationsMessage(user.Mention(), names))
		},
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "membre",
		Description: "Le membre à consulter (toi par défaut)",
	}).InGuildOnly()
}

func autocompleteEvents(store Store) discord.AutoCompleteFunc {
	return func(ctx *discord.CommandContext) {
		prefix := ""
		if focused := ctx.FocusedOption(); focused != nil {
			prefix = focused.StringValue()
		}

		names, err := store.Search(ctx.Context(), ctx.Interaction.GuildID, prefix)
		if err != nil {
			logger.Warn("Autocomplétion des événements impossible : "+err.Error(), "Events")
		}
		if err := ctx.ReplyChoices(choices(names)); err != nil {
			logger.Debug("Réponse d'autocomplétion refusée : "+err.Error(), "Events")
		}
	}
}

func choices(names []string) []*discordgo.ApplicationCommandOptionChoice {
	if len(names) > database.MaxAutocompleteChoices {
		names = names[:database.MaxAutocompleteChoices]
	}
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(names))
	for _, n := range names {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: n, Value: n})
	}
	return out
}

func toggleMessage(mention, name string, added bool) string {
	if added {
		return fmt.Sprintf("✅ %s a été ajouté à l'événement **%s** !", mention, name)
	}
	return fmt.Sprintf("✅ %s a été retiré de l'événement **%s** !", mention, name)
}

func participationsMessage(mention string, names []string) string {
	if len(names) == 0 {
		return mention + " n'a participé à aucun événement."
	}
	return mention + " a participé aux événements suivants :\n- " + strings.Join(names, "\n- ")
}
