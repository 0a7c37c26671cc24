package events

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// joinWindow separates a fresh join from the GuildCreate replay at startup
const joinWindow = 10 * time.Second

func registerGuildEvents(client *discord.ExtendedClient) {
	client.EventHandler.OnGuildCreate(onGuildCreate)
	client.EventHandler.RegisterEvent(onGuildDelete)
}

// onGuildCreate is called for every guild at startup and when the bot joins one
func onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if !freshJoin(g.JoinedAt, time.Now()) {
		logger.Debug(fmt.Sprintf("Serveur disponible : %s (%d membres)", g.Name, g.MemberCount), "Guild")
		return
	}

	logger.Info(fmt.Sprintf("➕ Ajouté au serveur %s (ID : %s)", g.Name, g.ID), "Guild")
	if g.SystemChannelID == "" {
		return
	}

	_, err := s.ChannelMessageSendEmbed(g.SystemChannelID, &discordgo.MessageEmbed{
		Title:       "Merci de m'avoir ajouté ! 🎉",
		Description: "Je suis **Mimir**. Discutez, réagissez et passez du temps en vocal pour gagner de l'XP.\nUtilise `/utils help` pour voir toutes mes commandes.",
		Color:       0x5865F2,
	})
	if err != nil {
		logger.Warn(fmt.Sprintf("Message de bienvenue impossible sur %s : %v", g.ID, err), "Guild")
	}
}

func onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		logger.Warn(fmt.Sprintf("Serveur indisponible : %s", g.ID), "Guild")
		return
	}
	logger.Info(fmt.Sprintf("➖ Retiré du serveur %s", g.ID), "Guild")
}

func freshJoin(joinedAt, now time.Time) bool {
	return !joinedAt.IsZero() && now.Sub(joinedAt) < joinWindow
}
