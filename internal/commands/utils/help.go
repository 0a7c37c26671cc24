package utils

import (
	"sort"
	"strings"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
)

var categoryTitles = map[string]string{
	"xp":        "✨ XP",
	"genance":   "😬 Gênance",
	"events":    "📅 Événements",
	"absences":  "🏖️ Absences",
	"bugreport": "🐛 Bugs",
	"games":     "🎲 Jeux",
	"utils":     "🔧 Utilitaires",
}

// createHelpCommand creates the /utils help subcommand
func createHelpCommand(commands *discord.CommandCollection) *discord.Command {
	return discord.NewCommand(
		"help",
		"Affiche la liste des commandes",
		"utils",
		func(ctx *discord.CommandContext) error {
			return ctx.ReplyEphemeral(helpText(commands.All()))
		},
	)
}

// helpText lists commands by category, sorted. Keys are routing names
// ("utils.ping" for subcommands).
func helpText(commands map[string]*discord.Command) string {
	byCategory := make(map[string][]string)
	for name, cmd := range commands {
		if cmd.IsDev {
			continue
		}
		line := "• `/" + strings.ReplaceAll(name, ".", " ") + "` : " + cmd.Description
		byCategory[cmd.Category] = append(byCategory[cmd.Category], line)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("📖 **Aide de Mimir**\n")
	for _, c := range categories {
		lines := byCategory[c]
		sort.Strings(lines)

		title, ok := categoryTitles[c]
		if !ok {
			title = c
		}
		b.WriteString("\n**" + title + "**\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
