package utils

import (
	"fmt"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
)

// createStatusCommand creates the /utils status subcommand
func createStatusCommand(dbStatus StatusFunc) *discord.Command {
	return discord.NewCommand(
		"status",
		"Affiche l'état du bot",
		"utils",
		func(ctx *discord.CommandContext) error {
			status := "🟠 | Stockage en mémoire"
			if dbStatus != nil {
				status, _ = dbStatus(ctx.Context())
			}

			return ctx.Reply(fmt.Sprintf(
				"📊 **État du bot**\n"+
					"• Bot : 🟢 En ligne\n"+
					"• Base de données : %s\n"+
					"• Serveurs : %d",
				status,
				ctx.Client.GuildCount(),
			))
		},
	)
}
