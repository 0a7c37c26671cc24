// Package participation tracks which members took part in community events.
package participation

import (
	"context"

	"github.com/MimirCommunity/MimirBot/pkg/discord"
)

// Store persists events and participations
type Store interface {
	Add(ctx context.Context, guildID, name string) error
	Remove(ctx context.Context, guildID, name string) error
	Toggle(ctx context.Context, guildID, userID, name string) (bool, error)
	Participations(ctx context.Context, guildID, userID string) ([]string, error)
	Search(ctx context.Context, guildID, prefix string) ([]string, error)
}

// RegisterParticipationCommands registers the event commands
func RegisterParticipationCommands(client *discord.ExtendedClient, store Store) {
	client.CommandHandler.RegisterCommand(createEventAddCommand(store))
	client.CommandHandler.RegisterCommand(createEventRemoveCommand(store))
	client.CommandHandler.RegisterCommand(createEventDefineCommand(store))
	client.CommandHandler.RegisterCommand(createEventsCommand(store))
}
