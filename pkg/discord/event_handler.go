package discord

import (
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/errors"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// EventHandler registers gateway event listeners. Every listener runs under
// the anti-crash recovery.
type EventHandler struct {
	client *ExtendedClient
	mu     sync.Mutex
	count  int
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(client *ExtendedClient) *EventHandler {
	return &EventHandler{client: client}
}

// RegisterEvent adds a raw handler to the Discord session
func (eh *EventHandler) RegisterEvent(handler interface{}) {
	eh.client.Session.AddHandler(handler)
	eh.mu.Lock()
	eh.count++
	eh.mu.Unlock()
}

// Count returns the number of registered listeners
func (eh *EventHandler) Count() int {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	return eh.count
}

// OnReady registers a ready event handler
func (eh *EventHandler) OnReady(handler func(s *discordgo.Session, r *discordgo.Ready)) {
	eh.RegisterEvent(func(s *discordgo.Session, r *discordgo.Ready) {
		defer errors.RecoverMiddleware()()
		handler(s, r)
	})
	logger.Debug("Événement 'Ready' enregistré", "EventHandler")
}

// OnMessageCreate registers a message create event handler
func (eh *EventHandler) OnMessageCreate(handler func(s *discordgo.Session, m *discordgo.MessageCreate)) {
	eh.RegisterEvent(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		defer errors.RecoverMiddleware()()
		handler(s, m)
	})
	logger.Debug("Événement 'MessageCreate' enregistré", "EventHandler")
}

// OnMessageDelete registers a message delete event handler
func (eh *EventHandler) OnMessageDelete(handler func(s *discordgo.Session, m *discordgo.MessageDelete)) {
	eh.RegisterEvent(func(s *discordgo.Session, m *discordgo.MessageDelete) {
		defer errors.RecoverMiddleware()()
		handler(s, m)
	})
	logger.Debug("Événement 'MessageDelete' enregistré", "EventHandler")
}

// OnMessageReactionAdd registers a reaction add event handler
func (eh *EventHandler) OnMessageReactionAdd(handler func(s *discordgo.Session, r *discordgo.MessageReactionAdd)) {
	eh.RegisterEvent(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		defer errors.RecoverMiddleware()()
		handler(s, r)
	})
	logger.Debug("Événement 'MessageReactionAdd' enregistré", "EventHandler")
}

// OnMessageReactionRemove registers a reaction remove event handler
func (eh *EventHandler) OnMessageReactionRemove(handler func(s *discordgo.Session, r *discordgo.MessageReactionRemove)) {
	eh.RegisterEvent(func(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
		defer errors.RecoverMiddleware()()
		handler(s, r)
	})
	logger.Debug("Événement 'MessageReactionRemove' enregistré", "EventHandler")
}

// OnVoiceStateUpdate registers a voice state update event handler
func (eh *EventHandler) OnVoiceStateUpdate(handler func(s *discordgo.Session, v *discordgo.VoiceStateUpdate)) {
	eh.RegisterEvent(func(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
		defer errors.RecoverMiddleware()()
		handler(s, v)
	})
	logger.Debug("Événement 'VoiceStateUpdate' enregistré", "EventHandler")
}

// OnGuildCreate registers a guild create event handler
func (eh *EventHandler) OnGuildCreate(handler func(s *discordgo.Session, g *discordgo.GuildCreate)) {
	eh.RegisterEvent(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		defer errors.RecoverMiddleware()()
		handler(s, g)
	})
	logger.Debug("Événement 'GuildCreate' enregistré", "EventHandler")
}
