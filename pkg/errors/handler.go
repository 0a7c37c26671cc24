// Package errors provides the anti-crash layer of the bot: panics recovered in
// handlers are counted, and a burst of errors shuts the process down after a
// webhook report.
package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/MimirCommunity/MimirBot/pkg/logger"
)

// ErrorHandler manages error counting and reporting
type ErrorHandler struct {
	errorCount    atomic.Int32
	webhookURL    string
	client        *http.Client
	stopChan      chan struct{}
	stopOnce      sync.Once
	shutdownFunc  func()
	exit          func(code int)
	maxErrors     int32
	resetInterval time.Duration
	checkInterval time.Duration
}

// ReportErrorOptions contains options for reporting an error
type ReportErrorOptions struct {
	Error   string
	Message string
}

type reportEmbed struct {
	Author      reportName `json:"author"`
	Description string     `json:"description"`
	Color       int        `json:"color"`
	Footer      reportName `json:"footer"`
	Timestamp   string     `json:"timestamp"`
}

type reportName struct {
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

var (
	handler *ErrorHandler
	once    sync.Once
)

// Init initializes the global error handler
func Init(webhookURL string, shutdownFunc func()) *ErrorHandler {
	once.Do(func() {
		handler = NewErrorHandler(webhookURL, shutdownFunc)
	})
	return handler
}

// Get returns the global error handler instance, nil before Init
func Get() *ErrorHandler {
	return handler
}

// NewErrorHandler creates a running ErrorHandler
func NewErrorHandler(webhookURL string, shutdownFunc func()) *ErrorHandler {
	h := newErrorHandler(webhookURL, shutdownFunc, 15, 5*time.Second, time.Second)
	h.start()
	return h
}

func newErrorHandler(webhookURL string, shutdownFunc func(), maxErrors int32, reset, check time.Duration) *ErrorHandler {
	return &ErrorHandler{
		webhookURL:    webhookURL,
		client:        &http.Client{Timeout: 10 * time.Second},
		stopChan:      make(chan struct{}),
		shutdownFunc:  shutdownFunc,
		exit:          os.Exit,
		maxErrors:     maxErrors,
		resetInterval: reset,
		checkInterval: check,
	}
}

func (h *ErrorHandler) start() {
	go func() {
		reset := time.NewTicker(h.resetInterval)
		check := time.NewTicker(h.checkInterval)
		defer reset.Stop()
		defer check.Stop()

		for {
			select {
			case <-reset.C:
				h.errorCount.Store(0)
			case <-check.C:
				if h.overThreshold() {
					h.shutdown()
					return
				}
			case <-h.stopChan:
				return
			}
		}
	}()
}

func (h *ErrorHandler) overThreshold() bool {
	return h.errorCount.Load() > h.maxErrors
}

func (h *ErrorHandler) shutdown() {
	start := time.Now()
	logger.Critical("Nombre d'erreurs anormalement élevé, arrêt du bot", "AntiCrash")

	h.Report(ReportErrorOptions{
		Error:   "Critique",
		Message: "Nombre inhabituel d'erreurs. Arrêt en cours...",
	})

	if h.shutdownFunc != nil {
		h.shutdownFunc()
	}

	logger.Warn(fmt.Sprintf("Fin du processus après %v", time.Since(start)), "AntiCrash")
	h.exit(1)
}

// Stop stops the monitoring goroutine
func (h *ErrorHandler) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// IncrementError increments the error count
func (h *ErrorHandler) IncrementError() {
	count := h.errorCount.Add(1)
	logger.Error(fmt.Sprintf("Compteur d'erreurs : %d", count), "AntiCrash")
}

// Count returns the errors seen in the current window
func (h *ErrorHandler) Count() int32 {
	return h.errorCount.Load()
}

// HandlePanic handles a recovered panic
func (h *ErrorHandler) HandlePanic(recovered interface{}) {
	h.IncrementError()
	logger.Error(fmt.Sprintf("Panic récupérée : %v", recovered), "AntiCrash")
}

// Report sends an error report to the Discord webhook
func (h *ErrorHandler) Report(data ReportErrorOptions) {
	if h.webhookURL == "" {
		return
	}

	payload := map[string][]reportEmbed{
		"embeds": {{
			Author:      reportName{Name: fmt.Sprintf("Erreur %s", data.Error)},
			Description: data.Message,
			Color:       0xFF0000,
			Footer:      reportName{Text: "Mimir"},
			Timestamp:   time.Now().Format(time.RFC3339),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error(fmt.Sprintf("Rapport d'erreur non sérialisable : %v", err), "AntiCrash")
		return
	}

	resp, err := h.client.Post(h.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Error(fmt.Sprintf("Envoi du rapport d'erreur impossible : %v", err), "AntiCrash")
		return
	}
	defer resp.Body.Close()

	logger.Warn(fmt.Sprintf("Rapport d'erreur envoyé, statut %d", resp.StatusCode), "AntiCrash")
}

// RecoverMiddleware returns a recovery function for use in deferred calls
func RecoverMiddleware() func() {
	return func() {
		if r := recover(); r != nil {
			Recovered(r)
		}
	}
}

// Recovered routes a recovered value to the global handler
func Recovered(r interface{}) {
	if handler != nil {
		handler.HandlePanic(r)
		return
	}
	logger.Error(fmt.Sprintf("Panic récupérée (sans handler) : %v", r), "AntiCrash")
}

// Go runs fn in a goroutine guarded by the anti-crash handler
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				Recovered(r)
			}
		}()
		fn()
	}()
}
