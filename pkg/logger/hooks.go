package logger

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05"

// consoleFormatter renders "[time] [LEVEL] [prefix]: message"
type consoleFormatter struct {
	colors bool
}

func (f *consoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	level := levelOf(e)
	name := level.String()
	if f.colors {
		name = level.Color() + name + colorReset
	}
	return []byte(fmt.Sprintf("[%s] [%s] [%s]: %s\n",
		e.Time.Format(timestampFormat), name, prefixOf(e), e.Message)), nil
}

// fileHook appends every entry to combined.log and errors to error.log
type fileHook struct {
	mu        sync.Mutex
	plain     consoleFormatter
	combined  *os.File
	errorFile *os.File
}

func newFileHook(dir string) (*fileHook, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	combinedPath, errorPath := filesIn(dir)

	combined, err := os.OpenFile(combinedPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	errorFile, err := os.OpenFile(errorPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		combined.Close()
		return nil, err
	}
	return &fileHook{combined: combined, errorFile: errorFile}, nil
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(e *logrus.Entry) error {
	line, err := h.plain.Format(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.combined.Write(line); err != nil {
		return err
	}
	if levelOf(e) <= LevelError {
		if _, err := h.errorFile.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (h *fileHook) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.combined.Close()
	h.errorFile.Close()
}

// webhookHook forwards entries to Discord as embeds. Errors and criticals go
// to the error webhook, everything else to the logs webhook.
type webhookHook struct {
	errorURL string
	logsURL  string
	client   *http.Client
	pending  sync.WaitGroup
}

type webhookEmbed struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Color       int           `json:"color"`
	Timestamp   string        `json:"timestamp"`
	Footer      webhookFooter `json:"footer"`
}

type webhookFooter struct {
	Text string `json:"text"`
}

type webhookPayload struct {
	Embeds []webhookEmbed `json:"embeds"`
}

func newWebhookHook(errorURL, logsURL string) *webhookHook {
	return &webhookHook{
		errorURL: errorURL,
		logsURL:  logsURL,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (h *webhookHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *webhookHook) urlFor(level LogLevel) string {
	if level <= LevelError {
		return h.errorURL
	}
	return h.logsURL
}

func (h *webhookHook) Fire(e *logrus.Entry) error {
	level := levelOf(e)
	url := h.urlFor(level)
	if url == "" {
		return nil
	}

	body, err := json.Marshal(webhookPayload{Embeds: []webhookEmbed{{
		Title:       fmt.Sprintf("[%s] %s", level, prefixOf(e)),
		Description: fmt.Sprintf("```%s```", e.Message),
		Color:       level.DiscordColor(),
		Timestamp:   e.Time.Format(time.RFC3339),
		Footer:      webhookFooter{Text: "Mimir"},
	}}})
	if err != nil {
		return err
	}

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		resp, err := h.client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			return
		}
		resp.Body.Close()
	}()
	return nil
}

// Wait blocks until every in-flight webhook call returned
func (h *webhookHook) Wait() {
	h.pending.Wait()
}
