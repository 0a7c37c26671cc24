package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// onVoiceStateUpdate starts, moves or stops voice XP sessions
func (h *handlers) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil || v.GuildID == "" {
		return
	}

	previous := ""
	if v.BeforeUpdate != nil {
		previous = v.BeforeUpdate.ChannelID
	}

	ctx, cancel := eventContext()
	defer cancel()

	if err := h.XP.OnVoiceStateChange(ctx, v.GuildID, v.UserID, previous, v.ChannelID, memberIsBot(v.Member), h.now()); err != nil {
		logger.Warn(fmt.Sprintf("Session vocale non démarrée pour %s : %v", v.UserID, err), "Voice")
	}
}
