// Package genance scores cringe words in messages and exposes /genance.
package genance

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bwmarrin/discordgo"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// Word is a cringe word and what it costs
type Word struct {
	Text   string
	Points int64
	re     *regexp.Regexp
}

func word(text string, points int64) Word {
	return Word{Text: text, Points: points, re: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(text) + `\b`)}
}

// Words are checked in order; only the first match scores
var Words = []Word{
	word("feur", 5),
	word("quoicoubeh", 10),
	word("apagnan", 5),
}

// Match returns the first cringe word found as a whole word in content
func Match(content string) (Word, bool) {
	for _, w := range Words {
		if w.re.MatchString(content) {
			return w, true
		}
	}
	return Word{}, false
}

// Store persists the points
type Store interface {
	AddPoints(ctx context.Context, guildID, userID string, points int64) (int64, error)
	Points(ctx context.Context, guildID, userID string) (int64, error)
}

// Sender is the part of discordgo.Session used to answer in the channel
type Sender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Tracker scores messages
type Tracker struct {
	store Store
}

// NewTracker creates a Tracker over store
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// OnMessage scores m and answers in its channel. It reports whether a word matched.
func (t *Tracker) OnMessage(ctx context.Context, s Sender, m *discordgo.Message) (bool, error) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return false, nil
	}

	w, ok := Match(m.Content)
	if !ok {
		return false, nil
	}

	total, err := t.store.AddPoints(ctx, m.GuildID, m.Author.ID, w.Points)
	if err != nil {
		return true, fmt.Errorf("genance: add points: %w", err)
	}
	logger.Info(fmt.Sprintf("+%d points de gênance pour %s (%q), total %d", w.Points, m.Author.ID, w.Text, total), "Genance")

	if _, err := s.ChannelMessageSend(m.ChannelID, scoredMessage(m.Author.ID, w)); err != nil {
		return true, fmt.Errorf("genance: reply: %w", err)
	}
	return true, nil
}

func scoredMessage(userID string, w Word) string {
	return fmt.Sprintf("😬 <@%s>, +%d point(s) de gênance pour avoir dit **%s** !", userID, w.Points, w.Text)
}
