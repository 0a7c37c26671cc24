// Package events wires gateway events to the XP engine and the community
// features. Events are organized by category (ready, guild, message,
// reaction, voice).
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/MimirCommunity/MimirBot/internal/commands/bugreport"
	"github.com/MimirCommunity/MimirBot/internal/commands/genance"
	"github.com/MimirCommunity/MimirBot/pkg/discord"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
	"github.com/MimirCommunity/MimirBot/pkg/xp"
)

// eventTimeout bounds the store work done for one gateway event
const eventTimeout = 5 * time.Second

// XP is the part of the XP engine fed by gateway events
type XP interface {
	OnMessage(ctx context.Context, guildID, userID, channelID string, isBot bool, ts time.Time) (*xp.Grant, error)
	OnReactionAdd(ctx context.Context, guildID, userID, messageID, channelID string, isBot bool) (*xp.Grant, error)
	ForgetMessage(messageID string)
	OnVoiceStateChange(ctx context.Context, guildID, userID, previousChannelID, newChannelID string, isBot bool, now time.Time) error
}

// Deps are the listeners' collaborators. Genance and Reporter may be nil.
type Deps struct {
	XP       XP
	Genance  *genance.Tracker
	Reporter *bugreport.Reporter
}

type handlers struct {
	Deps
	now func() time.Time
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, deps Deps) {
	logger.System("📋 Enregistrement des événements...", "Events")

	h := &handlers{Deps: deps, now: time.Now}

	// Ready event (bot startup)
	client.EventHandler.OnReady(onReady)

	// Guild events (server join/leave)
	registerGuildEvents(client)

	// Message events (XP, gênance)
	client.EventHandler.OnMessageCreate(h.onMessageCreate)
	client.EventHandler.OnMessageDelete(h.onMessageDelete)

	// Reaction events (XP, bug report status)
	client.EventHandler.OnMessageReactionAdd(h.onReactionAdd)
	client.EventHandler.OnMessageReactionRemove(h.onReactionRemove)

	// Voice events (voice XP)
	client.EventHandler.OnVoiceStateUpdate(h.onVoiceStateUpdate)

	logger.Success(fmt.Sprintf("✅ %d écouteurs enregistrés", client.EventHandler.Count()), "Events")
}

func eventContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), eventTimeout)
}
