package utils

import (
	"fmt"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
)

// createPingCommand creates the /utils ping subcommand
func createPingCommand() *discord.Command {
	return discord.NewCommand(
		"ping",
		"Vérifie la latence du bot",
		"utils",
		pingHandler,
	)
}

func pingHandler(ctx *discord.CommandContext) error {
	return ctx.Reply(fmt.Sprintf("🏓 Pong ! Latence : %dms", ctx.Client.Latency().Milliseconds()))
}
