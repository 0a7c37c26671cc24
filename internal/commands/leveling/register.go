// Package leveling provides the XP commands and the level-up announcer.
package leveling

import (
	"context"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
	"github.com/MimirCommunity/MimirBot/pkg/models"
	"github.com/MimirCommunity/MimirBot/pkg/xp"
)

// Engine is the part of the XP engine the commands drive
type Engine interface {
	Curve() xp.Curve
	GetProgress(ctx context.Context, guildID, userID string) (xp.Progress, error)
	AdjustXP(ctx context.Context, guildID, userID string, delta int64, actorID string) (models.UserProgress, error)
	Leaderboard(ctx context.Context, guildID string, limit int) ([]xp.Progress, error)
	SetChannelExcluded(ctx context.Context, guildID, channelID string, excluded bool) error
	ExcludedChannels(ctx context.Context, guildID string) ([]string, error)
}

// RegisterLevelingCommands registers /xp, /xp-adjust, /xp-exclude and /leaderboard
func RegisterLevelingCommands(client *discord.ExtendedClient, engine Engine) {
	client.CommandHandler.RegisterCommand(createXPCommand(engine))
	client.CommandHandler.RegisterCommand(createAdjustCommand(engine))
	client.CommandHandler.RegisterCommand(createExcludeCommand(engine))
	client.CommandHandler.RegisterCommand(createLeaderboardCommand(engine))
}
