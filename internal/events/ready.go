package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// onReady is called when the bot successfully connects to Discord
func onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.Info(fmt.Sprintf("📊 Connecté à %d serveurs", len(r.Guilds)), "Ready")

	if err := s.UpdateGameStatus(0, "compter l'XP | /utils help"); err != nil {
		logger.Error(fmt.Sprintf("Impossible de définir le statut : %v", err), "Ready")
		return
	}

	logger.Debug("Statut du bot défini", "Ready")
}
