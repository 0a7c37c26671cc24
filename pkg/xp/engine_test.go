package xp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCooldown(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()
	start := te.clock.Now()

	g, err := te.RecordMessageActivity(ctx, guild, alice, general, start)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.GreaterOrEqual(t, g.Amount, int64(5))
	assert.LessOrEqual(t, g.Amount, int64(15))
	first := te.xpOf(t, alice)

	g, err = te.RecordMessageActivity(ctx, guild, alice, general, start.Add(59*time.Second))
	require.NoError(t, err)
	assert.Nil(t, g, "message inside the cooldown must not grant")
	assert.Equal(t, first, te.xpOf(t, alice))

	g, err = te.RecordMessageActivity(ctx, guild, alice, general, start.Add(60*time.Second))
	require.NoError(t, err)
	require.NotNil(t, g, "message at exactly the cooldown grants again")
	assert.Equal(t, first+g.Amount, te.xpOf(t, alice))
}

func TestMessageCooldownIsPerMember(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()
	now := te.clock.Now()

	g, err := te.RecordMessageActivity(ctx, guild, alice, general, now)
	require.NoError(t, err)
	require.NotNil(t, g)

	g, err = te.RecordMessageActivity(ctx, guild, bob, general, now)
	require.NoError(t, err)
	assert.NotNil(t, g)

	g, err = te.RecordMessageActivity(ctx, "guild-2", alice, general, now)
	require.NoError(t, err)
	assert.NotNil(t, g, "cooldowns are scoped to a guild")
}

func TestOnMessageIgnoresBots(t *testing.T) {
	te := newTestEngine(t, Options{})

	g, err := te.OnMessage(context.Background(), guild, alice, general, true, te.clock.Now())
	require.NoError(t, err)
	assert.Nil(t, g)
	assert.Zero(t, te.store.writes.Load())
}

func TestReactionDedup(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()

	g, err := te.RecordReactionActivity(ctx, guild, alice, "msg-1", general)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.GreaterOrEqual(t, g.Amount, int64(2))
	assert.LessOrEqual(t, g.Amount, int64(8))
	granted := te.xpOf(t, alice)

	for i := 0; i < 10; i++ {
		g, err = te.RecordReactionActivity(ctx, guild, alice, "msg-1", general)
		require.NoError(t, err)
		assert.Nil(t, g)
	}
	assert.Equal(t, granted, te.xpOf(t, alice))
	assert.Equal(t, int64(1), te.store.writes.Load())

	g, err = te.RecordReactionActivity(ctx, guild, alice, "msg-2", general)
	require.NoError(t, err)
	assert.NotNil(t, g, "another message grants again")

	g, err = te.RecordReactionActivity(ctx, guild, bob, "msg-1", general)
	require.NoError(t, err)
	assert.NotNil(t, g, "another member grants on the same message")
}

func TestForgetMessageResetsDedup(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()

	_, err := te.RecordReactionActivity(ctx, guild, alice, "msg-1", general)
	require.NoError(t, err)
	te.ForgetMessage("msg-1")

	g, err := te.RecordReactionActivity(ctx, guild, alice, "msg-1", general)
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestExcludedChannelNeverGrants(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()
	require.NoError(t, te.SetChannelExcluded(ctx, guild, spam, true))

	g, err := te.RecordMessageActivity(ctx, guild, alice, spam, te.clock.Now())
	require.NoError(t, err)
	assert.Nil(t, g)

	g, err = te.RecordReactionActivity(ctx, guild, alice, "msg-1", spam)
	require.NoError(t, err)
	assert.Nil(t, g)

	started, err := te.OnVoiceJoin(ctx, guild, alice, spam, te.clock.Now())
	require.NoError(t, err)
	assert.False(t, started)
	assert.False(t, te.HasVoiceSession(guild, alice))

	assert.Zero(t, te.xpOf(t, alice))
	assert.Zero(t, te.store.writes.Load())

	// an excluded message does not consume the cooldown
	g, err = te.RecordMessageActivity(ctx, guild, alice, general, te.clock.Now())
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestSetChannelExcludedToggle(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()

	require.NoError(t, te.SetChannelExcluded(ctx, guild, spam, true))
	require.NoError(t, te.SetChannelExcluded(ctx, guild, general, true))
	ids, err := te.ExcludedChannels(ctx, guild)
	require.NoError(t, err)
	assert.Equal(t, []string{general, spam}, ids)

	require.NoError(t, te.SetChannelExcluded(ctx, guild, spam, false))
	ids, err = te.ExcludedChannels(ctx, guild)
	require.NoError(t, err)
	assert.Equal(t, []string{general}, ids)

	g, err := te.RecordMessageActivity(ctx, guild, alice, spam, te.clock.Now())
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestAdjustXPFloorsAtZero(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()

	_, err := te.ApplyXP(ctx, guild, alice, 50, SourceAdmin)
	require.NoError(t, err)

	p, err := te.AdjustXP(ctx, guild, alice, -10_000_000, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.XP)
	assert.Equal(t, te.Curve().Level(0), p.Level)

	view, err := te.GetProgress(ctx, guild, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), view.XP)
	assert.Equal(t, int64(0), view.Level)
	assert.Equal(t, int64(1), view.XPToNextLevel)
}

func TestAdjustXPAcceptsAnyDelta(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()

	p, err := te.AdjustXP(ctx, guild, alice, 40, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(40), p.XP)
	assert.Equal(t, int64(3), p.Level)

	p, err = te.AdjustXP(ctx, guild, alice, -1, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(39), p.XP)
	assert.Equal(t, int64(3), p.Level)
}

func TestLevelUpEmittedOnce(t *testing.T) {
	te := newTestEngine(t, Options{})

	p, err := te.ApplyXP(context.Background(), guild, alice, 100, SourceAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(100), p.XP)
	assert.Equal(t, int64(3), p.Level)

	events := te.levelUps()
	require.Len(t, events, 1)
	assert.Equal(t, alice, events[0].UserID)
	assert.Equal(t, guild, events[0].GuildID)
	assert.Equal(t, int64(0), events[0].OldLevel)
	assert.Equal(t, int64(3), events[0].NewLevel)
	assert.Equal(t, int64(100), events[0].XP)

	// same level, no event
	_, err = te.ApplyXP(context.Background(), guild, alice, 1, SourceAdmin)
	require.NoError(t, err)
	assert.Len(t, te.levelUps(), 1)
}

func TestLevelDownEmitsNothing(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()

	_, err := te.ApplyXP(ctx, guild, alice, 100, SourceAdmin)
	require.NoError(t, err)
	_, err = te.AdjustXP(ctx, guild, alice, -90, bob)
	require.NoError(t, err)

	assert.Len(t, te.levelUps(), 1)
}

func TestPanickingHandlerDoesNotBreakGrant(t *testing.T) {
	te := newTestEngine(t, Options{})
	te.OnLevelUp(func(LevelUpEvent) { panic("boom") })

	var got []LevelUpEvent
	te.OnLevelUp(func(ev LevelUpEvent) { got = append(got, ev) })

	p, err := te.ApplyXP(context.Background(), guild, alice, 11, SourceAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Level)
	assert.Len(t, got, 1)
}

func TestApplyXPRejectsInvalidArguments(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()

	_, err := te.ApplyXP(ctx, guild, alice, -1, SourceAdmin)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = te.ApplyXP(ctx, "", alice, 1, SourceAdmin)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = te.AdjustXP(ctx, guild, alice, 1, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = te.RecordReactionActivity(ctx, guild, alice, "", general)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = te.RecordMessageActivity(ctx, guild, "", general, te.clock.Now())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Zero(t, te.store.writes.Load())
}

func TestEndToEndMessages(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()
	curve := te.Curve()

	var sum int64
	now := te.clock.Now()
	for i := 0; i < 21; i++ {
		g, err := te.RecordMessageActivity(ctx, guild, alice, general, now)
		require.NoError(t, err)
		require.NotNil(t, g, "message %d should grant", i)
		assert.GreaterOrEqual(t, g.Amount, int64(5))
		assert.LessOrEqual(t, g.Amount, int64(15))
		sum += g.Amount

		assert.Equal(t, sum, g.After.XP)
		assert.Equal(t, curve.Level(g.After.XP), g.After.Level)

		view, err := te.GetProgress(ctx, guild, alice)
		require.NoError(t, err)
		assert.Equal(t, sum, view.XP)
		assert.Equal(t, curve.Level(sum), view.Level)

		now = now.Add(61 * time.Second)
	}
}

func TestConcurrentApplyXPLosesNothing(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := te.ApplyXP(ctx, guild, alice, 1, Source("test"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := te.GetProgress(ctx, guild, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(100), p.XP)
	assert.Equal(t, te.Curve().Level(100), p.Level)
}

func TestFailedWriteReleasesCooldown(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()
	now := te.clock.Now()

	te.store.down.Store(true)
	g, err := te.RecordMessageActivity(ctx, guild, alice, general, now)
	assert.Nil(t, g)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))

	te.store.down.Store(false)
	g, err = te.RecordMessageActivity(ctx, guild, alice, general, now.Add(time.Second))
	require.NoError(t, err)
	assert.NotNil(t, g, "the failed attempt must not consume the cooldown")
}

func TestFailedWriteReleasesReactionDedup(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()

	te.store.down.Store(true)
	_, err := te.RecordReactionActivity(ctx, guild, alice, "msg-1", general)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	te.store.down.Store(false)
	g, err := te.RecordReactionActivity(ctx, guild, alice, "msg-1", general)
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestStoreOutageSurfacesOnWritesAndDegradesReads(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()

	_, err := te.ApplyXP(ctx, guild, alice, 30, SourceAdmin)
	require.NoError(t, err)

	te.store.down.Store(true)

	view, err := te.GetProgress(ctx, guild, alice)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, int64(0), view.XP)
	assert.Equal(t, int64(0), view.Level)
	assert.Equal(t, alice, view.UserID)

	_, err = te.AdjustXP(ctx, guild, alice, 5, bob)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = te.SetChannelExcluded(ctx, guild, spam, true)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	te.store.down.Store(false)
	view, err = te.GetProgress(ctx, guild, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(30), view.XP)
}

func TestLeaderboard(t *testing.T) {
	te := newTestEngine(t, Options{})
	ctx := context.Background()

	_, err := te.ApplyXP(ctx, guild, alice, 40, SourceAdmin)
	require.NoError(t, err)
	_, err = te.ApplyXP(ctx, guild, bob, 120, SourceAdmin)
	require.NoError(t, err)
	_, err = te.ApplyXP(ctx, "guild-2", "carol", 500, SourceAdmin)
	require.NoError(t, err)

	top, err := te.Leaderboard(ctx, guild, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, bob, top[0].UserID)
	assert.Equal(t, alice, top[1].UserID)
	assert.Equal(t, te.Curve().ToNextLevel(120), top[0].XPToNextLevel)

	top, err = te.Leaderboard(ctx, guild, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestGrantAmountsFollowRand(t *testing.T) {
	te := newTestEngine(t, Options{RandInt64N: fixedRand(100)})

	g, err := te.RecordMessageActivity(context.Background(), guild, alice, general, te.clock.Now())
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, int64(15), g.Amount, "rand is clamped to the top of the range")

	te2 := newTestEngine(t, Options{RandInt64N: fixedRand(0)})
	g, err = te2.RecordReactionActivity(context.Background(), guild, alice, "msg-1", general)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, int64(2), g.Amount)
}
