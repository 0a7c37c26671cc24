package utils

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/config"
	"github.com/MimirCommunity/MimirBot/pkg/discord"
)

// createStatsCommand creates the /utils stats subcommand
func createStatsCommand() *discord.Command {
	return discord.NewCommand(
		"stats",
		"Affiche les statistiques du bot",
		"utils",
		statsHandler,
	)
}

func statsHandler(ctx *discord.CommandContext) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memberCount := 0
	ctx.Session.State.RLock()
	for _, guild := range ctx.Session.State.Guilds {
		memberCount += guild.MemberCount
	}
	ctx.Session.State.RUnlock()

	embed := &discordgo.MessageEmbed{
		Title: "📊 Statistiques du bot",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🤖 Version", Value: config.Version, Inline: true},
			{Name: "🐹 Go", Value: strings.TrimPrefix(runtime.Version(), "go"), Inline: true},
			{Name: "📚 DiscordGo", Value: discordgo.VERSION, Inline: true},
			{Name: "🖥 RAM", Value: fmt.Sprintf("%.2f Mo", float64(m.Alloc)/1024/1024), Inline: true},
			{Name: "⚙️ Goroutines", Value: fmt.Sprintf("%d / %d CPU", runtime.NumGoroutine(), runtime.NumCPU()), Inline: true},
			{Name: "⏱ En ligne depuis", Value: formatDuration(ctx.Client.Uptime()), Inline: true},
			{Name: "🏠 Serveurs", Value: fmt.Sprintf("%d", ctx.Client.GuildCount()), Inline: true},
			{Name: "👥 Membres", Value: fmt.Sprintf("%d", memberCount), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Mimir"},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	return ctx.ReplyEmbed(embed)
}

// formatDuration formats a duration as French words, "0 seconde" for zero
func formatDuration(dur time.Duration) string {
	units := []struct {
		n    int
		name string
	}{
		{int(dur.Hours() / 24), "jour"},
		{int(dur.Hours()) % 24, "heure"},
		{int(dur.Minutes()) % 60, "minute"},
		{int(dur.Seconds()) % 60, "seconde"},
	}

	var parts []string
	for _, u := range units {
		if u.n == 0 {
			continue
		}
		name := u.name
		if u.n > 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", u.n, name))
	}
	if len(parts) == 0 {
		return "0 seconde"
	}
	return strings.Join(parts, ", ")
}
