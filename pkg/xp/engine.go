// Package xp implements the leveling engine: it turns member activity
// (messages, reactions, voice presence) into persistent XP and levels under
// cooldown, dedup and channel exclusion rules.
package xp

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
	"github.com/MimirCommunity/MimirBot/pkg/models"
)

// Source identifies what triggered an XP change
type Source string

const (
	SourceMessage  Source = "message"
	SourceReaction Source = "reaction"
	SourceVoice    Source = "voice"
	SourceAdmin    Source = "admin"
)

// Range is an inclusive interval of XP amounts
type Range struct {
	Min int64
	Max int64
}

// Options configures an Engine. Zero values fall back to the defaults below.
type Options struct {
	Multiplier      float64
	MessageCooldown time.Duration
	VoiceInterval   time.Duration
	MessageGrant    Range
	ReactionGrant   Range
	VoiceGrant      Range
	// StoreTimeout bounds every store round trip
	StoreTimeout time.Duration

	Clock    Clock
	Presence VoicePresence
	// RandInt64N returns a uniform integer in [0, n). Defaults to math/rand/v2.
	RandInt64N func(n int64) int64
}

// DefaultOptions returns the production policy
func DefaultOptions() Options {
	return Options{
		Multiplier:      DefaultMultiplier,
		MessageCooldown: 60 * time.Second,
		VoiceInterval:   60 * time.Second,
		MessageGrant:    Range{Min: 5, Max: 15},
		ReactionGrant:   Range{Min: 2, Max: 8},
		VoiceGrant:      Range{Min: 8, Max: 16},
		StoreTimeout:    5 * time.Second,
		Clock:           SystemClock{},
		RandInt64N:      rand.Int64N,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Multiplier <= 0 {
		o.Multiplier = d.Multiplier
	}
	if o.MessageCooldown <= 0 {
		o.MessageCooldown = d.MessageCooldown
	}
	if o.VoiceInterval <= 0 {
		o.VoiceInterval = d.VoiceInterval
	}
	if o.MessageGrant == (Range{}) {
		o.MessageGrant = d.MessageGrant
	}
	if o.ReactionGrant == (Range{}) {
		o.ReactionGrant = d.ReactionGrant
	}
	if o.VoiceGrant == (Range{}) {
		o.VoiceGrant = d.VoiceGrant
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = d.StoreTimeout
	}
	if o.Clock == nil {
		o.Clock = d.Clock
	}
	if o.RandInt64N == nil {
		o.RandInt64N = d.RandInt64N
	}
	return o
}

// Progress is a member's XP state plus the XP missing for the next level
type Progress struct {
	models.UserProgress
	XPToNextLevel int64 `json:"xpToNextLevel"`
}

// Grant describes one applied XP change
type Grant struct {
	Source Source
	Amount int64
	Before models.UserProgress
	After  models.UserProgress
}

// LeveledUp reports whether the grant crossed at least one level boundary
func (g *Grant) LeveledUp() bool {
	return g != nil && g.After.Level > g.Before.Level
}

// LevelUpEvent is emitted once per XP change that raises the level
type LevelUpEvent struct {
	GuildID  string
	UserID   string
	OldLevel int64
	NewLevel int64
	XP       int64
	Source   Source
	At       time.Time
}

// LevelUpHandler receives level-up events. It runs on the goroutine that
// applied the XP and must not block for long.
type LevelUpHandler func(LevelUpEvent)

type memberKey struct {
	guildID string
	userID  string
}

// Engine owns the rate-limit state and is the only writer of XP.
type Engine struct {
	store Store
	curve Curve
	opts  Options

	mu           sync.Mutex
	lastMessage  map[memberKey]time.Time
	reactionSeen map[string]map[memberKey]struct{}
	sessions     map[memberKey]*voiceSession
	closed       bool

	handlersMu sync.RWMutex
	handlers   []LevelUpHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates an engine over store
func NewEngine(store Store, opts Options) *Engine {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:        store,
		curve:        Curve{Multiplier: opts.Multiplier},
		opts:         opts,
		lastMessage:  make(map[memberKey]time.Time),
		reactionSeen: make(map[string]map[memberKey]struct{}),
		sessions:     make(map[memberKey]*voiceSession),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Curve returns the level curve in use
func (e *Engine) Curve() Curve {
	return e.curve
}

// OnLevelUp subscribes h to level-up events
func (e *Engine) OnLevelUp(h LevelUpHandler) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.handlers = append(e.handlers, h)
}

// OnMessage is the dispatch entry point for a new message; bots never earn XP.
func (e *Engine) OnMessage(ctx context.Context, guildID, userID, channelID string, isBot bool, ts time.Time) (*Grant, error) {
	if isBot {
		return nil, nil
	}
	return e.RecordMessageActivity(ctx, guildID, userID, channelID, ts)
}

// OnReactionAdd is the dispatch entry point for an added reaction
func (e *Engine) OnReactionAdd(ctx context.Context, guildID, userID, messageID, channelID string, isBot bool) (*Grant, error) {
	if isBot {
		return nil, nil
	}
	return e.RecordReactionActivity(ctx, guildID, userID, messageID, channelID)
}

// RecordMessageActivity grants message XP unless the channel is excluded or
// the member is still on cooldown. A nil grant with a nil error is a no-op.
func (e *Engine) RecordMessageActivity(ctx context.Context, guildID, userID, channelID string, now time.Time) (*Grant, error) {
	if err := requireIDs(guildID, userID, channelID); err != nil {
		return nil, err
	}
	if e.channelExcluded(ctx, guildID, channelID) {
		return nil, nil
	}

	key := memberKey{guildID, userID}

	e.mu.Lock()
	prev, hadPrev := e.lastMessage[key]
	if hadPrev && now.Sub(prev) < e.opts.MessageCooldown {
		e.mu.Unlock()
		return nil, nil
	}
	e.lastMessage[key] = now
	e.mu.Unlock()

	grant, err := e.apply(ctx, guildID, userID, e.roll(e.opts.MessageGrant), SourceMessage)
	if err != nil {
		// the grant did not happen, give the cooldown slot back
		e.mu.Lock()
		if cur, ok := e.lastMessage[key]; ok && cur.Equal(now) {
			if hadPrev {
				e.lastMessage[key] = prev
			} else {
				delete(e.lastMessage, key)
			}
		}
		e.mu.Unlock()
		return nil, err
	}
	return grant, nil
}

// RecordReactionActivity grants reaction XP at most once per (message, member).
func (e *Engine) RecordReactionActivity(ctx context.Context, guildID, userID, messageID, channelID string) (*Grant, error) {
	if err := requireIDs(guildID, userID, channelID); err != nil {
		return nil, err
	}
	if messageID == "" {
		return nil, invalidArgument("empty message id")
	}
	if e.channelExcluded(ctx, guildID, channelID) {
		return nil, nil
	}

	key := memberKey{guildID, userID}

	e.mu.Lock()
	seen, ok := e.reactionSeen[messageID]
	if !ok {
		seen = make(map[memberKey]struct{})
		e.reactionSeen[messageID] = seen
	}
	if _, dup := seen[key]; dup {
		e.mu.Unlock()
		return nil, nil
	}
	seen[key] = struct{}{}
	e.mu.Unlock()

	grant, err := e.apply(ctx, guildID, userID, e.roll(e.opts.ReactionGrant), SourceReaction)
	if err != nil {
		e.mu.Lock()
		if seen, ok := e.reactionSeen[messageID]; ok {
			delete(seen, key)
			if len(seen) == 0 {
				delete(e.reactionSeen, messageID)
			}
		}
		e.mu.Unlock()
		return nil, err
	}
	return grant, nil
}

// ForgetMessage drops the reaction dedup state of a message, e.g. once it is deleted
func (e *Engine) ForgetMessage(messageID string) {
	e.mu.Lock()
	delete(e.reactionSeen, messageID)
	e.mu.Unlock()
}

// ApplyXP adds a non-negative amount of XP. It is the funnel every activity
// grant goes through.
func (e *Engine) ApplyXP(ctx context.Context, guildID, userID string, delta int64, source Source) (models.UserProgress, error) {
	if err := requireIDs(guildID, userID); err != nil {
		return models.UserProgress{}, err
	}
	if delta < 0 {
		return models.UserProgress{}, invalidArgument("negative grant %d from %s", delta, source)
	}
	grant, err := e.apply(ctx, guildID, userID, delta, source)
	if err != nil {
		return models.UserProgress{}, err
	}
	return grant.After, nil
}

// AdjustXP applies a moderator correction. Any delta is accepted and the
// result is floored at zero; cooldowns and exclusions do not apply.
func (e *Engine) AdjustXP(ctx context.Context, guildID, userID string, delta int64, actorID string) (models.UserProgress, error) {
	if err := requireIDs(guildID, userID); err != nil {
		return models.UserProgress{}, err
	}
	if actorID == "" {
		return models.UserProgress{}, invalidArgument("empty actor id")
	}
	grant, err := e.apply(ctx, guildID, userID, delta, SourceAdmin)
	if err != nil {
		return models.UserProgress{}, err
	}
	logger.Info(fmt.Sprintf("XP ajusté de %+d pour %s par %s (serveur %s) : %d -> %d XP",
		delta, userID, actorID, guildID, grant.Before.XP, grant.After.XP), "XP")
	return grant.After, nil
}

// GetProgress returns a member's progress. When the store cannot be read the
// zero state is returned together with an ErrStoreUnavailable error.
func (e *Engine) GetProgress(ctx context.Context, guildID, userID string) (Progress, error) {
	if err := requireIDs(guildID, userID); err != nil {
		return Progress{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	p, err := e.store.Progress(ctx, guildID, userID)
	if err != nil {
		zero := models.UserProgress{GuildID: guildID, UserID: userID}
		return e.progress(zero), storeError("get progress", err)
	}
	return e.progress(p), nil
}

// Leaderboard returns the top members of a guild by XP
func (e *Engine) Leaderboard(ctx context.Context, guildID string, limit int) ([]Progress, error) {
	if guildID == "" {
		return nil, invalidArgument("empty guild id")
	}
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	top, err := e.store.Top(ctx, guildID, limit)
	if err != nil {
		return nil, storeError("leaderboard", err)
	}
	out := make([]Progress, 0, len(top))
	for _, p := range top {
		out = append(out, e.progress(p))
	}
	return out, nil
}

// SetChannelExcluded adds or removes a channel from the exclusion set
func (e *Engine) SetChannelExcluded(ctx context.Context, guildID, channelID string, excluded bool) error {
	if err := requireIDs(guildID, channelID); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	if err := e.store.SetChannelExcluded(ctx, guildID, channelID, excluded); err != nil {
		return storeError("set channel excluded", err)
	}
	return nil
}

// ExcludedChannels lists the excluded channels of a guild
func (e *Engine) ExcludedChannels(ctx context.Context, guildID string) ([]string, error) {
	if guildID == "" {
		return nil, invalidArgument("empty guild id")
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	ids, err := e.store.ExcludedChannels(ctx, guildID)
	if err != nil {
		return nil, storeError("list excluded channels", err)
	}
	return ids, nil
}

// apply is the single mutation path: one atomic store update, then the
// level-up signal.
func (e *Engine) apply(ctx context.Context, guildID, userID string, delta int64, source Source) (*Grant, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	upd, err := e.store.AddXP(ctx, guildID, userID, delta, e.curve)
	if err != nil {
		return nil, storeError("apply", err)
	}

	grant := &Grant{Source: source, Amount: delta, Before: upd.Before, After: upd.After}
	logger.Debug(fmt.Sprintf("%+d XP (%s) pour %s sur %s, total %d", delta, source, userID, guildID, upd.After.XP), "XP")

	if grant.LeveledUp() {
		e.emit(LevelUpEvent{
			GuildID:  guildID,
			UserID:   userID,
			OldLevel: upd.Before.Level,
			NewLevel: upd.After.Level,
			XP:       upd.After.XP,
			Source:   source,
			At:       e.opts.Clock.Now(),
		})
	}
	return grant, nil
}

func (e *Engine) emit(ev LevelUpEvent) {
	e.handlersMu.RLock()
	handlers := make([]LevelUpHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.handlersMu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(fmt.Sprintf("Panic dans un handler de niveau : %v", r), "XP")
				}
			}()
			h(ev)
		}()
	}
}

// channelExcluded degrades to "not excluded" when the store cannot be read;
// the grant that follows will surface the outage if it persists.
func (e *Engine) channelExcluded(ctx context.Context, guildID, channelID string) bool {
	ctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	excluded, err := e.store.IsChannelExcluded(ctx, guildID, channelID)
	if err != nil {
		logger.Warn(fmt.Sprintf("Lecture des salons exclus impossible (%s) : %v", guildID, err), "XP")
		return false
	}
	return excluded
}

func (e *Engine) progress(p models.UserProgress) Progress {
	return Progress{UserProgress: p, XPToNextLevel: e.curve.ToNextLevel(p.XP)}
}

func (e *Engine) roll(r Range) int64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + e.opts.RandInt64N(r.Max-r.Min+1)
}

func requireIDs(ids ...string) error {
	for _, id := range ids {
		if id == "" {
			return invalidArgument("empty identifier")
		}
	}
	return nil
}
