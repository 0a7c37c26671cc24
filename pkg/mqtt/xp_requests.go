package mqtt

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/MimirCommunity/MimirBot/pkg/xp"
)

// Request topics answered for other services
const (
	TopicXPProgress    = "xp/progress"
	TopicXPLeaderboard = "xp/leaderboard"
)

const maxLeaderboardSize = 50

// Router registers request handlers, implemented by Communicator
type Router interface {
	On(topic string, h RequestHandler) error
}

// XPReader is the read side of the XP engine
type XPReader interface {
	GetProgress(ctx context.Context, guildID, userID string) (xp.Progress, error)
	Leaderboard(ctx context.Context, guildID string, limit int) ([]xp.Progress, error)
}

type xpQuery struct {
	GuildID string `json:"guildId"`
	UserID  string `json:"userId"`
	Limit   int    `json:"limit"`
}

// ServeXP answers progress and leaderboard requests from reader
func ServeXP(r Router, reader XPReader) error {
	if err := r.On(TopicXPProgress, progressHandler(reader)); err != nil {
		return err
	}
	return r.On(TopicXPLeaderboard, leaderboardHandler(reader))
}

func progressHandler(reader XPReader) RequestHandler {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		q, err := decodeQuery(payload)
		if err != nil {
			return nil, err
		}
		return reader.GetProgress(ctx, q.GuildID, q.UserID)
	}
}

func leaderboardHandler(reader XPReader) RequestHandler {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		q, err := decodeQuery(payload)
		if err != nil {
			return nil, err
		}
		if q.Limit <= 0 {
			q.Limit = 10
		}
		if q.Limit > maxLeaderboardSize {
			q.Limit = maxLeaderboardSize
		}
		return reader.Leaderboard(ctx, q.GuildID, q.Limit)
	}
}

func decodeQuery(payload json.RawMessage) (xpQuery, error) {
	var q xpQuery
	if len(payload) == 0 {
		return q, fmt.Errorf("payload manquant")
	}
	if err := json.Unmarshal(payload, &q); err != nil {
		return q, fmt.Errorf("payload invalide : %w", err)
	}
	return q, nil
}
