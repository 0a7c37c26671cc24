package xp

import (
	"context"
	"fmt"
	"time"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// voiceSession is the handle of one running accrual loop
type voiceSession struct {
	channelID string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// OnVoiceJoin starts the voice accrual loop of a member. It reports whether a
// loop was started: joining an excluded channel or joining twice is a no-op.
func (e *Engine) OnVoiceJoin(ctx context.Context, guildID, userID, channelID string, now time.Time) (bool, error) {
	if err := requireIDs(guildID, userID, channelID); err != nil {
		return false, err
	}
	if e.channelExcluded(ctx, guildID, channelID) {
		return false, nil
	}

	key := memberKey{guildID, userID}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false, ErrClosed
	}
	if _, active := e.sessions[key]; active {
		return false, nil
	}

	sctx, cancel := context.WithCancel(e.ctx)
	s := &voiceSession{
		channelID: channelID,
		startedAt: now,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	e.sessions[key] = s

	e.wg.Add(1)
	go e.runVoiceSession(sctx, key, s)

	logger.Debug(fmt.Sprintf("Session vocale démarrée pour %s dans %s", userID, channelID), "XP")
	return true, nil
}

// OnVoiceLeave stops the accrual loop of a member and waits for it to exit, so
// no grant can land after it returns. It reports whether a session was active.
func (e *Engine) OnVoiceLeave(guildID, userID string) bool {
	key := memberKey{guildID, userID}

	e.mu.Lock()
	s, ok := e.sessions[key]
	if ok {
		delete(e.sessions, key)
	}
	e.mu.Unlock()

	if !ok {
		return false
	}
	s.cancel()
	<-s.done

	logger.Debug(fmt.Sprintf("Session vocale terminée pour %s", userID), "XP")
	return true
}

// OnVoiceStateChange maps a raw voice state transition onto leave/join.
// Moving between channels restarts the session so exclusion is re-checked.
func (e *Engine) OnVoiceStateChange(ctx context.Context, guildID, userID, previousChannelID, newChannelID string, isBot bool, now time.Time) error {
	if isBot || previousChannelID == newChannelID {
		return nil
	}
	if previousChannelID != "" {
		e.OnVoiceLeave(guildID, userID)
	}
	if newChannelID != "" {
		_, err := e.OnVoiceJoin(ctx, guildID, userID, newChannelID, now)
		return err
	}
	return nil
}

// HasVoiceSession reports whether an accrual loop is running for a member
func (e *Engine) HasVoiceSession(guildID, userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[memberKey{guildID, userID}]
	return ok
}

// ActiveVoiceSessions returns the number of running accrual loops
func (e *Engine) ActiveVoiceSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Close cancels every voice loop without a final grant and waits for them.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.sessions = make(map[memberKey]*voiceSession)
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}

// runVoiceSession grants voice XP every interval while the member stays
// connected. It exits on cancellation or once the member is gone.
func (e *Engine) runVoiceSession(ctx context.Context, key memberKey, s *voiceSession) {
	defer e.wg.Done()
	defer close(s.done)
	defer e.endSession(key, s)

	for {
		timer := e.opts.Clock.NewTimer(e.opts.VoiceInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}

		// a leave racing with the tick wins
		if ctx.Err() != nil {
			return
		}
		if e.opts.Presence != nil && !e.opts.Presence.InVoice(key.guildID, key.userID) {
			logger.Debug(fmt.Sprintf("%s n'est plus en vocal, arrêt de la session", key.userID), "XP")
			return
		}

		if _, err := e.apply(ctx, key.guildID, key.userID, e.roll(e.opts.VoiceGrant), SourceVoice); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn(fmt.Sprintf("XP vocal non enregistré pour %s : %v", key.userID, err), "XP")
		}
	}
}

// endSession drops the map entry if it still belongs to s
func (e *Engine) endSession(key memberKey, s *voiceSession) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.sessions[key]; ok && cur == s {
		delete(e.sessions, key)
	}
	s.cancel()
}
