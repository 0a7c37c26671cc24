// Package absences lets members declare absences, announced in a dedicated
// channel and cleaned up once they are over.
package absences

import (
	"context"
	"time"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
	"github.com/MimirCommunity/MimirBot/pkg/models"
)

// Store persists absences and the announce channel
type Store interface {
	SetChannel(ctx context.Context, guildID, channelID string) error
	Channel(ctx context.Context, guildID string) (string, error)
	Add(ctx context.Context, a models.Absence) error
	RemoveForUser(ctx context.Context, guildID, userID string) ([]models.Absence, error)
	Expired(ctx context.Context, now time.Time) ([]models.Absence, error)
	Delete(ctx context.Context, id string) error
}

// RegisterAbsenceCommands registers /absence-channel, /absence and /absence-remove
func RegisterAbsenceCommands(client *discord.ExtendedClient, store Store) {
	client.CommandHandler.RegisterCommand(createChannelCommand(store))
	client.CommandHandler.RegisterCommand(createAbsenceCommand(store))
	client.CommandHandler.RegisterCommand(createRemoveCommand(store))
}
