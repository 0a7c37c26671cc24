package xp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tick fires the next voice interval and waits until every loop re-armed
func tick(t *testing.T, te *testEngine, loops int) {
	t.Helper()
	te.clock.waitForTimers(t, loops)
	te.clock.Advance(time.Minute)
	te.clock.waitForTimers(t, loops)
}

func TestVoiceJoinIsIdempotent(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()
	te.presence.set(alice, true)

	started, err := te.OnVoiceJoin(ctx, guild, alice, general, te.clock.Now())
	require.NoError(t, err)
	assert.True(t, started)

	started, err = te.OnVoiceJoin(ctx, guild, alice, general, te.clock.Now())
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 1, te.ActiveVoiceSessions())

	tick(t, te, 1)
	assert.Equal(t, 1, te.clock.pendingTimers(), "only one loop may run")
	assert.Equal(t, int64(1), te.store.writes.Load())

	xp := te.xpOf(t, alice)
	assert.GreaterOrEqual(t, xp, int64(8))
	assert.LessOrEqual(t, xp, int64(16))
}

func TestVoiceAccruesEveryInterval(t *testing.T) {
	te := newTestEngine(t, Options{RandInt64N: fixedRand(0)})
	ctx := context.Background()
	te.presence.set(alice, true)

	_, err := te.OnVoiceJoin(ctx, guild, alice, general, te.clock.Now())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		tick(t, te, 1)
	}
	assert.Equal(t, int64(24), te.xpOf(t, alice))
}

func TestVoiceLeaveStopsLoopWithoutPartialGrant(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()
	te.presence.set(alice, true)

	_, err := te.OnVoiceJoin(ctx, guild, alice, general, te.clock.Now())
	require.NoError(t, err)
	te.clock.waitForTimers(t, 1)

	te.clock.Advance(30 * time.Second)
	assert.True(t, te.OnVoiceLeave(guild, alice))
	assert.False(t, te.OnVoiceLeave(guild, alice), "second leave is a no-op")
	assert.False(t, te.HasVoiceSession(guild, alice))
	assert.Equal(t, 0, te.clock.pendingTimers())

	te.clock.Advance(time.Hour)
	assert.Zero(t, te.store.writes.Load())
	assert.Zero(t, te.xpOf(t, alice))
}

func TestVoiceLoopEndsWhenMemberIsGone(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()
	te.presence.set(alice, false)

	_, err := te.OnVoiceJoin(ctx, guild, alice, general, te.clock.Now())
	require.NoError(t, err)
	te.clock.waitForTimers(t, 1)
	te.clock.Advance(time.Minute)

	require.Eventually(t, func() bool { return !te.HasVoiceSession(guild, alice) },
		2*time.Second, time.Millisecond)
	assert.Zero(t, te.store.writes.Load())
	assert.False(t, te.OnVoiceLeave(guild, alice))

	// a fresh join starts a new loop
	te.presence.set(alice, true)
	started, err := te.OnVoiceJoin(ctx, guild, alice, general, te.clock.Now())
	require.NoError(t, err)
	assert.True(t, started)
}

func TestVoiceLoopSurvivesStoreOutage(t *testing.T) {
	te := newTestEngine(t, Options{RandInt64N: fixedRand(0)})
	ctx := context.Background()
	te.presence.set(alice, true)

	_, err := te.OnVoiceJoin(ctx, guild, alice, general, te.clock.Now())
	require.NoError(t, err)

	te.store.down.Store(true)
	tick(t, te, 1)
	assert.True(t, te.HasVoiceSession(guild, alice))

	te.store.down.Store(false)
	tick(t, te, 1)
	assert.Equal(t, int64(8), te.xpOf(t, alice))
}

func TestCloseCancelsEveryLoop(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()
	te.presence.set(alice, true)
	te.presence.set(bob, true)

	_, err := te.OnVoiceJoin(ctx, guild, alice, general, te.clock.Now())
	require.NoError(t, err)
	_, err = te.OnVoiceJoin(ctx, guild, bob, general, te.clock.Now())
	require.NoError(t, err)
	te.clock.waitForTimers(t, 2)

	te.Close()
	assert.Equal(t, 0, te.ActiveVoiceSessions())
	assert.Equal(t, 0, te.clock.pendingTimers())

	te.clock.Advance(time.Hour)
	assert.Zero(t, te.store.writes.Load())

	_, err = te.OnVoiceJoin(ctx, guild, alice, general, te.clock.Now())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestVoiceStateChange(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()
	now := te.clock.Now()
	te.presence.set(alice, true)
	require.NoError(t, te.SetChannelExcluded(ctx, guild, spam, true))

	require.NoError(t, te.OnVoiceStateChange(ctx, guild, alice, "", general, false, now))
	assert.True(t, te.HasVoiceSession(guild, alice))

	// mute/deafen updates keep the channel
	require.NoError(t, te.OnVoiceStateChange(ctx, guild, alice, general, general, false, now))
	assert.Equal(t, 1, te.ActiveVoiceSessions())

	require.NoError(t, te.OnVoiceStateChange(ctx, guild, alice, general, spam, false, now))
	assert.False(t, te.HasVoiceSession(guild, alice), "moving to an excluded channel ends the session")

	require.NoError(t, te.OnVoiceStateChange(ctx, guild, alice, spam, general, false, now))
	assert.True(t, te.HasVoiceSession(guild, alice))

	require.NoError(t, te.OnVoiceStateChange(ctx, guild, alice, general, "", false, now))
	assert.False(t, te.HasVoiceSession(guild, alice))

	require.NoError(t, te.OnVoiceStateChange(ctx, guild, bob, "", general, true, now))
	assert.False(t, te.HasVoiceSession(guild, bob), "bots never earn voice XP")
}
