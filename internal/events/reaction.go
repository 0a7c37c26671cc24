package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

func (h *handlers) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil {
		return
	}

	if r.GuildID != "" {
		ctx, cancel := eventContext()
		defer cancel()

		if _, err := h.XP.OnReactionAdd(ctx, r.GuildID, r.UserID, r.MessageID, r.ChannelID, memberIsBot(r.Member)); err != nil {
			logger.Warn(fmt.Sprintf("XP de réaction non enregistré pour %s : %v", r.UserID, err), "Reaction")
		}
	}

	if h.Reporter == nil || s == nil || s.State == nil || s.State.User == nil {
		return
	}
	if err := h.Reporter.OnReactionAdd(s, s.State.User.ID, r.MessageReaction); err != nil {
		logger.Warn(err.Error(), "Reaction")
	}
}

func (h *handlers) onReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if h.Reporter == nil || r.MessageReaction == nil {
		return
	}
	if err := h.Reporter.OnReactionRemove(s, r.MessageReaction); err != nil {
		logger.Warn(err.Error(), "Reaction")
	}
}

func memberIsBot(m *discordgo.Member) bool {
	return m != nil && m.User != nil && m.User.Bot
}
