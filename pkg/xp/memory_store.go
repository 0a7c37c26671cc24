package xp

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MimirCommunity/MimirBot/pkg/models"
)

// MemoryStore is an in-process Store. It backs the engine when no database
// is configured and in tests.
type MemoryStore struct {
	mu       sync.Mutex
	progress map[memberKey]models.UserProgress
	excluded map[string]map[string]struct{}
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		progress: make(map[memberKey]models.UserProgress),
		excluded: make(map[string]map[string]struct{}),
		now:      time.Now,
	}
}

// Progress returns the record, creating the zero one when absent
func (m *MemoryStore) Progress(_ context.Context, guildID, userID string) (models.UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memberKey{guildID, userID}
	p, ok := m.progress[key]
	if !ok {
		p = models.UserProgress{GuildID: guildID, UserID: userID, UpdatedAt: m.now()}
		m.progress[key] = p
	}
	return p, nil
}

// AddXP applies delta under the store lock
func (m *MemoryStore) AddXP(_ context.Context, guildID, userID string, delta int64, curve Curve) (Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memberKey{guildID, userID}
	before, ok := m.progress[key]
	if !ok {
		before = models.UserProgress{GuildID: guildID, UserID: userID}
	}

	after := before
	after.XP = max(0, before.XP+delta)
	after.Level = curve.Level(after.XP)
	after.UpdatedAt = m.now()
	m.progress[key] = after

	return Update{Before: before, After: after}, nil
}

// Top returns the highest XP records of a guild
func (m *MemoryStore) Top(_ context.Context, guildID string, limit int) ([]models.UserProgress, error) {
	m.mu.Lock()
	out := make([]models.UserProgress, 0)
	for k, p := range m.progress {
		if k.guildID == guildID && p.XP > 0 {
			out = append(out, p)
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].XP == out[j].XP {
			return out[i].UserID < out[j].UserID
		}
		return out[i].XP > out[j].XP
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// IsChannelExcluded reports membership in the exclusion set
func (m *MemoryStore) IsChannelExcluded(_ context.Context, guildID, channelID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.excluded[guildID][channelID]
	return ok, nil
}

// SetChannelExcluded adds or removes a channel
func (m *MemoryStore) SetChannelExcluded(_ context.Context, guildID, channelID string, excluded bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.excluded[guildID]
	if !ok {
		if !excluded {
			return nil
		}
		set = make(map[string]struct{})
		m.excluded[guildID] = set
	}
	if excluded {
		set[channelID] = struct{}{}
	} else {
		delete(set, channelID)
	}
	return nil
}

// ExcludedChannels lists the excluded channel ids of a guild, sorted
func (m *MemoryStore) ExcludedChannels(_ context.Context, guildID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.excluded[guildID]))
	for id := range m.excluded[guildID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
