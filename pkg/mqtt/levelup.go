package mqtt

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MimirCommunity/MimirBot/pkg/errors"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
	"github.com/MimirCommunity/MimirBot/pkg/xp"
)

// TopicLevelUp receives one message per level-up
const TopicLevelUp = Namespace + "/xp/levelup"

// Publisher is the part of Communicator used to emit events
type Publisher interface {
	Publish(topic string, payload interface{}) error
}

// LevelUpMessage is the payload published on TopicLevelUp
type LevelUpMessage struct {
	ID       string    `json:"id"`
	GuildID  string    `json:"guildId"`
	UserID   string    `json:"userId"`
	OldLevel int64     `json:"oldLevel"`
	NewLevel int64     `json:"newLevel"`
	XP       int64     `json:"xp"`
	Source   string    `json:"source"`
	At       time.Time `json:"at"`
}

// NewLevelUpMessage converts an engine event into its wire form
func NewLevelUpMessage(ev xp.LevelUpEvent) LevelUpMessage {
	return LevelUpMessage{
		ID:       uuid.NewString(),
		GuildID:  ev.GuildID,
		UserID:   ev.UserID,
		OldLevel: ev.OldLevel,
		NewLevel: ev.NewLevel,
		XP:       ev.XP,
		Source:   string(ev.Source),
		At:       ev.At,
	}
}

// LevelUpPublisher returns an engine subscriber that forwards level-ups to
// p. Publishing happens off the XP path; failures are only logged.
func LevelUpPublisher(p Publisher) xp.LevelUpHandler {
	return func(ev xp.LevelUpEvent) {
		msg := NewLevelUpMessage(ev)
		errors.Go(func() {
			if err := p.Publish(TopicLevelUp, msg); err != nil {
				logger.Warn(fmt.Sprintf("Publication du level-up de %s impossible : %v", msg.UserID, err), "MQTT")
			}
		})
	}
}
