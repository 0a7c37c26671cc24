// Package games provides the small fun commands: dice, random numbers, the
// soleil countdown and message renaming.
package games

import (
	"github.com/MimirCommunity/MimirBot/pkg/discord"
)

// RegisterGamesCommands registers /roll, /random, /soleil and /rename
func RegisterGamesCommands(client *discord.ExtendedClient) {
	client.CommandHandler.RegisterCommand(createRollCommand())
	client.CommandHandler.RegisterCommand(createRandomCommand())
	client.CommandHandler.RegisterCommand(createSoleilCommand())
	client.CommandHandler.RegisterCommand(createRenameCommand())
	client.CommandHandler.RegisterModal(renameRoute, renameSubmit)
}
