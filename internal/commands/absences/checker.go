package absences

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
	"github.com/MimirCommunity/MimirBot/pkg/models"
)

// Session is the part of discordgo.Session the checker uses
type Session interface {
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// Checker periodically closes the absences that are over
type Checker struct {
	store    Store
	session  Session
	interval time.Duration
	now      func() time.Time
}

// NewChecker creates a Checker running every interval
func NewChecker(store Store, session Session, interval time.Duration) *Checker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Checker{store: store, session: session, interval: interval, now: time.Now}
}

// Run checks once immediately, then every interval until ctx is done
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if n, err := c.CheckOnce(ctx); err != nil {
			logger.Warn("Vérification des absences impossible : "+err.Error(), "Absences")
		} else if n > 0 {
			logger.Info(fmt.Sprintf("%d absence(s) terminée(s)", n), "Absences")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// CheckOnce closes every expired absence and returns how many were closed.
// An absence is only deleted once its reminder was handled.
func (c *Checker) CheckOnce(ctx context.Context) (int, error) {
	expired, err := c.store.Expired(ctx, c.now())
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, a := range expired {
		if ctx.Err() != nil {
			return closed, ctx.Err()
		}
		c.close(a)
		if err := c.store.Delete(ctx, a.ID); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}

func (c *Checker) close(a models.Absence) {
	if err := c.session.ChannelMessageDelete(a.ChannelID, a.ID); err != nil {
		logger.Debug("Annonce d'absence introuvable : "+a.ID, "Absences")
	}

	if _, err := c.session.GuildMember(a.GuildID, a.UserID); err != nil {
		logger.Debug(fmt.Sprintf("%s a quitté le serveur %s, pas de rappel", a.UserID, a.GuildID), "Absences")
		return
	}

	msg, err := c.session.ChannelMessageSend(a.ChannelID,
		fmt.Sprintf("<@%s> ton absence est terminée ! Confirme ton retour avec ✅ ou ❌.", a.UserID))
	if err != nil {
		logger.Warn(fmt.Sprintf("Rappel de fin d'absence impossible pour %s : %v", a.UserID, err), "Absences")
		return
	}
	for _, emoji := range []string{"✅", "❌"} {
		if err := c.session.MessageReactionAdd(a.ChannelID, msg.ID, emoji); err != nil {
			logger.Debug("Réaction de rappel impossible : "+err.Error(), "Absences")
		}
	}
}
