package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimirCommunity/MimirBot/pkg/xp"
)

func newTestServer(t *testing.T, api *API, rateLimit int) *Server {
	t.Helper()
	s := NewServer(Options{RateLimit: rateLimit})
	gin.SetMode(gin.TestMode)
	SetupAPIRoutes(s, api)
	return s
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:1234"
	s.Engine().ServeHTTP(w, req)
	return w
}

func seededEngine(t *testing.T) *xp.Engine {
	t.Helper()
	e := xp.NewEngine(xp.NewMemoryStore(), xp.Options{})
	t.Cleanup(e.Close)

	ctx := context.Background()
	_, err := e.ApplyXP(ctx, "g1", "alice", 100, xp.SourceAdmin)
	require.NoError(t, err)
	_, err = e.ApplyXP(ctx, "g1", "bob", 40, xp.SourceAdmin)
	require.NoError(t, err)
	return e
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &API{Version: "1.2.3"}, 0)

	w := get(s, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, &API{
		DBStatus: func(context.Context) (string, bool) { return "🟢 | En ligne", true },
		BotReady: func() bool { return true },
		Guilds:   func() int { return 3 },
	}, 0)

	w := get(s, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Database struct {
			Status   string `json:"status"`
			IsOnline bool   `json:"isOnline"`
		} `json:"database"`
		Bot struct {
			IsOnline bool `json:"isOnline"`
			Guilds   int  `json:"guilds"`
		} `json:"bot"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Database.IsOnline)
	assert.True(t, body.Bot.IsOnline)
	assert.Equal(t, 3, body.Bot.Guilds)
}

func TestStatusOffline(t *testing.T) {
	s := newTestServer(t, &API{}, 0)

	w := get(s, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isOnline":false`)
}

func TestProgress(t *testing.T) {
	s := newTestServer(t, &API{XP: seededEngine(t)}, 0)

	w := get(s, "/api/xp/g1/alice")
	require.Equal(t, http.StatusOK, w.Code)

	var p xp.Progress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, int64(100), p.XP)
	assert.Equal(t, int64(3), p.Level)
	assert.Equal(t, int64(2), p.XPToNextLevel)

	w = get(s, "/api/xp/g1/nobody")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Zero(t, p.XP)
}

func TestLeaderboard(t *testing.T) {
	s := newTestServer(t, &API{XP: seededEngine(t)}, 0)

	w := get(s, "/api/xp/g1/leaderboard")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		GuildID string        `json:"guildId"`
		Entries []xp.Progress `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "alice", body.Entries[0].UserID)
	assert.Equal(t, "bob", body.Entries[1].UserID)

	w = get(s, "/api/xp/g1/leaderboard?limit=1")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Entries, 1)

	assert.Equal(t, http.StatusBadRequest, get(s, "/api/xp/g1/leaderboard?limit=zero").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/api/xp/g1/leaderboard?limit=-2").Code)
}

type brokenReader struct{ err error }

func (b brokenReader) GetProgress(context.Context, string, string) (xp.Progress, error) {
	return xp.Progress{}, b.err
}

func (b brokenReader) Leaderboard(context.Context, string, int) ([]xp.Progress, error) {
	return nil, b.err
}

func TestXPErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("xp: get progress: %w", xp.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("xp: %w: empty user id", xp.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			s := newTestServer(t, &API{XP: brokenReader{tt.err}}, 0)
			assert.Equal(t, tt.want, get(s, "/api/xp/g1/alice").Code)
			assert.Equal(t, tt.want, get(s, "/api/xp/g1/leaderboard").Code)
		})
	}
}

func TestXPUnavailableWithoutEngine(t *testing.T) {
	s := newTestServer(t, &API{}, 0)
	assert.Equal(t, http.StatusServiceUnavailable, get(s, "/api/xp/g1/alice").Code)
}

func TestNotFoundAndMethod(t *testing.T) {
	s := newTestServer(t, &API{}, 0)
	assert.Equal(t, http.StatusNotFound, get(s, "/nope").Code)

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(t, &API{}, 3)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, get(s, "/api/health").Code, "request %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(s, "/api/health").Code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	s.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "other clients keep their own budget")
}

func TestClientLimiterRefillsAndEvicts(t *testing.T) {
	cl := newClientLimiter(2, time.Minute)
	now := time.Now()

	assert.True(t, cl.allow("a", now))
	assert.True(t, cl.allow("a", now))
	assert.False(t, cl.allow("a", now))
	assert.True(t, cl.allow("a", now.Add(30*time.Second)))

	later := now.Add(10 * time.Minute)
	assert.True(t, cl.allow("b", later))
	cl.mu.Lock()
	_, kept := cl.clients["a"]
	cl.mu.Unlock()
	assert.False(t, kept)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, &API{}, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
