package leveling

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
	"github.com/MimirCommunity/MimirBot/pkg/xp"
)

const leaderboardSize = 10

func createLeaderboardCommand(engine Engine) *discord.Command {
	return discord.NewCommand(
		"leaderboard",
		"Affiche le classement XP du serveur",
		"xp",
		func(ctx *discord.CommandContext) error {
			return leaderboardHandler(ctx, engine)
		},
	).InGuildOnly()
}

func leaderboardHandler(ctx *discord.CommandContext, engine Engine) error {
	top, err := engine.Leaderboard(ctx.Context(), ctx.Interaction.GuildID, leaderboardSize)
	if err != nil {
		return err
	}

	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       "🏆 Classement XP",
		Description: formatLeaderboard(top),
		Color:       colorXP,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}

var medals = []string{"🥇", "🥈", "🥉"}

func formatLeaderboard(top []xp.Progress) string {
	if len(top) == 0 {
		return "Personne n'a encore gagné d'XP ici."
	}

	var b strings.Builder
	for i, p := range top {
		rank := fmt.Sprintf("`#%d`", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&b, "%s <@%s> : niveau **%d** (%d XP)\n", rank, p.UserID, p.Level, p.XP)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
