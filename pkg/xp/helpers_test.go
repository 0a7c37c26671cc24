package xp

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MimirCommunity/MimirBot/pkg/models"
)

// fakeClock is a manually advanced Clock
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	ch       chan time.Time
	stopped  bool
	fired    bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and fires every due timer
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	pending := c.timers[:0]
	for _, t := range c.timers {
		if t.stopped {
			continue
		}
		if !t.deadline.After(c.now) {
			t.fired = true
			t.ch <- c.now
			continue
		}
		pending = append(pending, t)
	}
	c.timers = pending
}

// pendingTimers counts armed timers
func (c *fakeClock) pendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// waitForTimers blocks until n timers are armed
func (c *fakeClock) waitForTimers(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return c.pendingTimers() >= n },
		2*time.Second, time.Millisecond, "expected %d armed timers", n)
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

// presence is a toggleable VoicePresence
type presence struct {
	mu        sync.Mutex
	connected map[string]bool
}

func newPresence() *presence {
	return &presence{connected: make(map[string]bool)}
}

func (p *presence) set(userID string, in bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected[userID] = in
}

func (p *presence) InVoice(_, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected[userID]
}

// flakyStore wraps MemoryStore and fails writes while down is set
type flakyStore struct {
	*MemoryStore
	down   atomic.Bool
	writes atomic.Int64
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: NewMemoryStore()}
}

func (f *flakyStore) AddXP(ctx context.Context, guildID, userID string, delta int64, curve Curve) (Update, error) {
	if f.down.Load() {
		return Update{}, ErrStoreUnavailable
	}
	f.writes.Add(1)
	return f.MemoryStore.AddXP(ctx, guildID, userID, delta, curve)
}

func (f *flakyStore) Progress(ctx context.Context, guildID, userID string) (models.UserProgress, error) {
	if f.down.Load() {
		return models.UserProgress{}, ErrStoreUnavailable
	}
	return f.MemoryStore.Progress(ctx, guildID, userID)
}

func (f *flakyStore) IsChannelExcluded(ctx context.Context, guildID, channelID string) (bool, error) {
	if f.down.Load() {
		return false, ErrStoreUnavailable
	}
	return f.MemoryStore.IsChannelExcluded(ctx, guildID, channelID)
}

func (f *flakyStore) SetChannelExcluded(ctx context.Context, guildID, channelID string, excluded bool) error {
	if f.down.Load() {
		return ErrStoreUnavailable
	}
	return f.MemoryStore.SetChannelExcluded(ctx, guildID, channelID, excluded)
}

// fixedRand always returns offset within the requested range
func fixedRand(offset int64) func(int64) int64 {
	return func(n int64) int64 {
		if offset >= n {
			return n - 1
		}
		return offset
	}
}

type testEngine struct {
	*Engine
	store    *flakyStore
	clock    *fakeClock
	presence *presence

	mu     sync.Mutex
	levels []LevelUpEvent
}

func newTestEngine(t *testing.T, opts Options) *testEngine {
	t.Helper()
	te := &testEngine{
		store:    newFlakyStore(),
		clock:    newFakeClock(),
		presence: newPresence(),
	}
	opts.Clock = te.clock
	opts.Presence = te.presence
	te.Engine = NewEngine(te.store, opts)
	te.OnLevelUp(func(ev LevelUpEvent) {
		te.mu.Lock()
		te.levels = append(te.levels, ev)
		te.mu.Unlock()
	})
	t.Cleanup(te.Close)
	return te
}

func (te *testEngine) levelUps() []LevelUpEvent {
	te.mu.Lock()
	defer te.mu.Unlock()
	out := make([]LevelUpEvent, len(te.levels))
	copy(out, te.levels)
	return out
}

func (te *testEngine) xpOf(t *testing.T, userID string) int64 {
	t.Helper()
	p, err := te.GetProgress(context.Background(), guild, userID)
	require.NoError(t, err)
	return p.XP
}

const (
	guild   = "guild-1"
	alice   = "alice"
	bob     = "bob"
	general = "general"
	spam    = "spam"
)
