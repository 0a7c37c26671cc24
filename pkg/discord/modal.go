package discord

import (
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ModalContext is the context of a submitted modal
type ModalContext struct {
	*CommandContext
	Data discordgo.ModalSubmitInteractionData
}

// ModalFunc handles a modal submission
type ModalFunc func(ctx *ModalContext) error

// ModalCollection routes modal submissions by custom id. Ids have the form
// "route" or "route:payload", where payload carries per-modal state.
type ModalCollection struct {
	mu     sync.RWMutex
	routes map[string]ModalFunc
}

// NewModalCollection creates an empty ModalCollection
func NewModalCollection() *ModalCollection {
	return &ModalCollection{routes: make(map[string]ModalFunc)}
}

// Set registers h for route
func (mc *ModalCollection) Set(route string, h ModalFunc) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.routes[route] = h
}

// Get resolves a custom id to its handler
func (mc *ModalCollection) Get(customID string) (ModalFunc, bool) {
	route, _ := SplitCustomID(customID)
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	h, ok := mc.routes[route]
	return h, ok
}

// CustomID builds a modal custom id
func CustomID(route, payload string) string {
	if payload == "" {
		return route
	}
	return route + ":" + payload
}

// SplitCustomID is the inverse of CustomID
func SplitCustomID(customID string) (route, payload string) {
	route, payload, _ = strings.Cut(customID, ":")
	return route, payload
}

// Payload returns the state carried by the custom id
func (ctx *ModalContext) Payload() string {
	_, payload := SplitCustomID(ctx.Data.CustomID)
	return payload
}

// Value returns the text typed in the input with the given custom id
func (ctx *ModalContext) Value(fieldID string) string {
	return ModalValues(ctx.Data)[fieldID]
}

// ModalValues flattens the text inputs of a submission by custom id
func ModalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	for _, comp := range data.Components {
		row, ok := comp.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				values[input.CustomID] = strings.TrimSpace(input.Value)
			}
		}
	}
	return values
}
