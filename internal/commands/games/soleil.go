package games

import (
	"context"
	"time"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
)

var soleilSteps = []string{"1", "2", "3", "🌞 SOLEIL ! 🌞"}

// soleilDelay separates two countdown steps
var soleilDelay = time.Second

func createSoleilCommand() *discord.Command {
	return discord.NewCommand(
		"soleil",
		"Joue à 1, 2, 3, SOLEIL !",
		"games",
		func(ctx *discord.CommandContext) error {
			if err := ctx.Reply("Préparez-vous... 🌞"); err != nil {
				return err
			}
			return countdown(ctx.Context(), soleilDelay, ctx.EditReply)
		},
	)
}

// countdown shows each step after delay, stopping early when ctx ends
func countdown(ctx context.Context, delay time.Duration, edit func(string) error) error {
	for _, step := range soleilSteps {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if err := edit(step); err != nil {
			return err
		}
	}
	return nil
}
