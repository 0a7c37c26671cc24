// Package utils provides the /utils command group: ping, status, help and stats.
package utils

import (
	"context"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
)

// StatusFunc reports the database status line and whether it is online
type StatusFunc func(ctx context.Context) (string, bool)

// RegisterUtilsCommands registers the /utils subcommands
func RegisterUtilsCommands(client *discord.ExtendedClient, dbStatus StatusFunc) {
	client.CommandHandler.RegisterCommandGroup(
		"utils",
		"Commandes utilitaires",
		createPingCommand(),
		createStatusCommand(dbStatus),
		createHelpCommand(client.Commands),
		createStatsCommand(),
	)
}
