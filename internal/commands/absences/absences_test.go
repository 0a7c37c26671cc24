package absences

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimirCommunity/MimirBot/pkg/models"
)

func TestParseRange(t *testing.T) {
	start, end, err := parseRange("2026-03-01", " 2026-03-03 ", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, 3, days(start, end))

	start, end, err = parseRange("2026-03-01", "2026-03-01", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, days(start, end))

	_, _, err = parseRange("01/03/2026", "2026-03-03", time.UTC)
	assert.ErrorIs(t, err, ErrBadDate)
	_, _, err = parseRange("2026-03-01", "demain", time.UTC)
	assert.ErrorIs(t, err, ErrBadDate)
	_, _, err = parseRange("2026-03-05", "2026-03-01", time.UTC)
	assert.ErrorIs(t, err, ErrEndFirst)
}

func TestAnnounce(t *testing.T) {
	start, end, err := parseRange("2026-12-30", "2027-01-02", time.UTC)
	require.NoError(t, err)
	assert.Equal(t,
		"**Absence de :** <@alice>\n**Durée :** 4 jour(s) (2026-12-30 - 2027-01-02)\n**Raison :** Vacances",
		announce("alice", start, end, "Vacances"))
}

type memStore struct {
	mu       sync.Mutex
	absences map[string]models.Absence
	failFind bool
}

func (m *memStore) SetChannel(context.Context, string, string) error { return nil }
func (m *memStore) Channel(context.Context, string) (string, error)  { return "", nil }

func (m *memStore) Add(_ context.Context, a models.Absence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.absences == nil {
		m.absences = make(map[string]models.Absence)
	}
	m.absences[a.ID] = a
	return nil
}

func (m *memStore) RemoveForUser(context.Context, string, string) ([]models.Absence, error) {
	return nil, nil
}

func (m *memStore) Expired(_ context.Context, now time.Time) ([]models.Absence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind {
		return nil, fmt.Errorf("mongo down")
	}
	var out []models.Absence
	for _, a := range m.absences {
		if !a.End.After(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.absences, id)
	return nil
}

type fakeSession struct {
	mu        sync.Mutex
	deleted   []string
	sent      []string
	reactions []string
	left      map[string]bool
}

func (f *fakeSession) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	return &discordgo.Message{ID: fmt.Sprintf("reminder-%d", len(f.sent)), ChannelID: channelID}, nil
}

func (f *fakeSession) MessageReactionAdd(_, _, emoji string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, emoji)
	return nil
}

func (f *fakeSession) GuildMember(_, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	if f.left[userID] {
		return nil, fmt.Errorf("unknown member")
	}
	return &discordgo.Member{User: &discordgo.User{ID: userID}}, nil
}

func TestCheckOnce(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &memStore{}
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, models.Absence{ID: "m1", GuildID: "g1", UserID: "alice", ChannelID: "abs", End: now.Add(-time.Hour)}))
	require.NoError(t, store.Add(ctx, models.Absence{ID: "m2", GuildID: "g1", UserID: "bob", ChannelID: "abs", End: now}))
	require.NoError(t, store.Add(ctx, models.Absence{ID: "m3", GuildID: "g1", UserID: "carol", ChannelID: "abs", End: now.Add(time.Hour)}))

	session := &fakeSession{left: map[string]bool{"bob": true}}
	c := NewChecker(store, session, 0)
	c.now = func() time.Time { return now }

	n, err := c.CheckOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.ElementsMatch(t, []string{"m1", "m2"}, session.deleted)
	require.Len(t, session.sent, 1, "members who left get no reminder")
	assert.Contains(t, session.sent[0], "<@alice> ton absence est terminée")
	assert.Equal(t, []string{"✅", "❌"}, session.reactions)

	assert.Len(t, store.absences, 1)
	assert.Contains(t, store.absences, "m3")

	n, err = c.CheckOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCheckOnceStoreFailure(t *testing.T) {
	c := NewChecker(&memStore{failFind: true}, &fakeSession{}, time.Hour)
	_, err := c.CheckOnce(context.Background())
	assert.Error(t, err)
}

func TestRunStopsWithContext(t *testing.T) {
	c := NewChecker(&memStore{}, &fakeSession{}, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("checker did not stop")
	}
}
