package games

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
)

const maxRandom = 10000

var (
	ErrNegativeMin = errors.New("La valeur minimale (`min`) ne peut pas être négative.")
	ErrMaxBelowMin = errors.New("La valeur maximale (`max`) doit être supérieure ou égale à la valeur minimale (`min`).")
	ErrMaxTooLarge = errors.New("La valeur maximale (`max`) ne peut pas dépasser 10 000.")
)

// intN returns a uniform integer in [0, n)
var intN = rand.Int64N

func createRollCommand() *discord.Command {
	return discord.NewCommand(
		"roll",
		"Lance un dé à six faces",
		"games",
		func(ctx *discord.CommandContext) error {
			result, _ := between(1, 6)
			return ctx.Reply(fmt.Sprintf("%s lance un dé et obtient : %d", ctx.User().Username, result))
		},
	)
}

func createRandomCommand() *discord.Command {
	return discord.NewCommand(
		"random",
		"Génère un nombre aléatoire entre deux bornes",
		"games",
		func(ctx *discord.CommandContext) error {
			low, ok := ctx.GetIntOption("min")
			if !ok {
				low = 1
			}
			high, ok := ctx.GetIntOption("max")
			if !ok {
				high = 6
			}

			result, err := between(low, high)
			if err != nil {
				return ctx.ReplyEphemeral(err.Error())
			}
			return ctx.Reply(fmt.Sprintf("%s génère un nombre aléatoire entre `%d` et `%d` et obtient : `%d`",
				ctx.User().Username, low, high, result))
		},
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "min",
			Description: "La valeur minimale (1 par défaut)",
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "max",
			Description: "La valeur maximale (6 par défaut)",
		},
	)
}

// between returns a uniform integer in [low, high] once the bounds are valid
func between(low, high int64) (int64, error) {
	switch {
	case low < 0:
		return 0, ErrNegativeMin
	case high < low:
		return 0, ErrMaxBelowMin
	case high > maxRandom:
		return 0, ErrMaxTooLarge
	}
	return low + intN(high-low+1), nil
}
