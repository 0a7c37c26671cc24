package xp

import (
	"context"

	"github.com/MimirCommunity/MimirBot/pkg/models"
)

// Update is the outcome of one atomic XP change
type Update struct {
	Before models.UserProgress
	After  models.UserProgress
}

// Store is the persistence the engine needs. Implementations must apply
// AddXP as a single atomic read-modify-write per (guild, user): the new XP is
// max(0, old+delta) and the level is recomputed with curve in the same write.
type Store interface {
	// Progress returns the stored progress, creating the zero record when absent.
	Progress(ctx context.Context, guildID, userID string) (models.UserProgress, error)
	AddXP(ctx context.Context, guildID, userID string, delta int64, curve Curve) (Update, error)
	Top(ctx context.Context, guildID string, limit int) ([]models.UserProgress, error)

	IsChannelExcluded(ctx context.Context, guildID, channelID string) (bool, error)
	SetChannelExcluded(ctx context.Context, guildID, channelID string, excluded bool) error
	ExcludedChannels(ctx context.Context, guildID string) ([]string, error)
}

// VoicePresence reports whether a member is currently connected to any voice
// channel of the guild.
type VoicePresence interface {
	InVoice(guildID, userID string) bool
}

// VoicePresenceFunc adapts a function to VoicePresence
type VoicePresenceFunc func(guildID, userID string) bool

// InVoice calls f
func (f VoicePresenceFunc) InVoice(guildID, userID string) bool {
	return f(guildID, userID)
}
