package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// onMessageCreate grants message XP and scores gênance words
func (h *handlers) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.GuildID == "" {
		return
	}

	ctx, cancel := eventContext()
	defer cancel()

	ts := m.Timestamp
	if ts.IsZero() {
		ts = h.now()
	}
	if _, err := h.XP.OnMessage(ctx, m.GuildID, m.Author.ID, m.ChannelID, m.Author.Bot, ts); err != nil {
		logger.Warn(fmt.Sprintf("XP de message non enregistré pour %s : %v", m.Author.ID, err), "Message")
	}

	if h.Genance == nil {
		return
	}
	if _, err := h.Genance.OnMessage(ctx, s, m.Message); err != nil {
		logger.Warn(err.Error(), "Message")
	}
}

// onMessageDelete drops the reaction bookkeeping of a deleted message
func (h *handlers) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	h.XP.ForgetMessage(m.ID)
}
