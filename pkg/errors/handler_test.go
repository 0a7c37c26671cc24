package errors

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverMiddlewareCountsPanics(t *testing.T) {
	h := newErrorHandler("", nil, 15, time.Hour, time.Hour)
	handler = h
	t.Cleanup(func() { handler = nil })

	func() {
		defer RecoverMiddleware()()
		panic("boom")
	}()

	assert.Equal(t, int32(1), h.Count())
}

func TestShutdownPastThreshold(t *testing.T) {
	var reports atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string][]reportEmbed
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Erreur Critique", body["embeds"][0].Author.Name)
		reports.Add(1)
	}))
	defer srv.Close()

	var shutdowns atomic.Int32
	exited := make(chan int, 1)

	h := newErrorHandler(srv.URL, func() { shutdowns.Add(1) }, 2, time.Hour, 5*time.Millisecond)
	h.exit = func(code int) { exited <- code }

	for i := 0; i < 3; i++ {
		h.IncrementError()
	}
	h.start()
	defer h.Stop()

	select {
	case code := <-exited:
		assert.Equal(t, 1, code)
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not shut down")
	}
	assert.Equal(t, int32(1), shutdowns.Load())
	assert.Equal(t, int32(1), reports.Load())
}

func TestCounterResets(t *testing.T) {
	h := newErrorHandler("", nil, 100, 5*time.Millisecond, time.Hour)
	h.IncrementError()
	h.IncrementError()
	h.start()
	defer h.Stop()

	require.Eventually(t, func() bool { return h.Count() == 0 }, time.Second, time.Millisecond)
}

func TestGoRecovers(t *testing.T) {
	done := make(chan struct{})
	Go(func() {
		defer close(done)
		panic("dans une goroutine")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine never ran")
	}
}
