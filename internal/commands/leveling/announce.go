package leveling

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/errors"
	"github.com/MimirCommunity/MimirBot/pkg/logger"
	"github.com/MimirCommunity/MimirBot/pkg/xp"
)

// Sender is the part of discordgo.Session the announcer uses
type Sender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Announcer posts level-ups in a fixed channel, or by direct message when
// no channel is configured.
type Announcer struct {
	sender    Sender
	channelID string
}

// NewAnnouncer creates an Announcer. channelID may be empty.
func NewAnnouncer(sender Sender, channelID string) *Announcer {
	return &Announcer{sender: sender, channelID: channelID}
}

// Handler returns the engine subscriber. Sending happens off the XP path and
// failures are only logged.
func (a *Announcer) Handler() xp.LevelUpHandler {
	return func(ev xp.LevelUpEvent) {
		errors.Go(func() { a.announce(ev) })
	}
}

func (a *Announcer) announce(ev xp.LevelUpEvent) {
	channelID := a.channelID
	content := levelUpMessage(ev, true)

	if channelID == "" {
		dm, err := a.sender.UserChannelCreate(ev.UserID)
		if err != nil {
			logger.Warn(fmt.Sprintf("MP de level-up impossible pour %s : %v", ev.UserID, err), "XP")
			return
		}
		channelID = dm.ID
		content = levelUpMessage(ev, false)
	}

	if _, err := a.sender.ChannelMessageSend(channelID, content); err != nil {
		logger.Warn(fmt.Sprintf("Annonce de level-up impossible pour %s : %v", ev.UserID, err), "XP")
	}
}

func levelUpMessage(ev xp.LevelUpEvent, mention bool) string {
	who := "Tu passes"
	if mention {
		who = fmt.Sprintf("<@%s> passe", ev.UserID)
	}
	if ev.NewLevel-ev.OldLevel > 1 {
		return fmt.Sprintf("🎉 %s du niveau %d au niveau **%d** ! (%d XP)", who, ev.OldLevel, ev.NewLevel, ev.XP)
	}
	return fmt.Sprintf("🎉 %s au niveau **%d** ! (%d XP)", who, ev.NewLevel, ev.XP)
}
