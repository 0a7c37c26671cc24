package genance

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
)

// RegisterGenanceCommands registers /genance
func RegisterGenanceCommands(client *discord.ExtendedClient, store Store) {
	client.CommandHandler.RegisterCommand(createGenanceCommand(store))
}

func createGenanceCommand(store Store) *discord.Command {
	return discord.NewCommand(
		"genance",
		"Consulte les points de gênance d'un membre",
		"genance",
		func(ctx *discord.CommandContext) error {
			target := ctx.GetUserOption("membre")
			if target == nil {
				target = ctx.User()
			}

			points, err := store.Points(ctx.Context(), ctx.Interaction.GuildID, target.ID)
			if err != nil {
				return err
			}
			return ctx.ReplyEphemeral(fmt.Sprintf("😬 %s a accumulé **%d** point(s) de gênance.", target.Mention(), points))
		},
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "membre",
		Description: "Le membre à consulter (toi par défaut)",
	}).InGuildOnly()
}
