// Package logger provides the bot logging system on top of logrus.
// Entries go to a colored console, to rotating-free log files and, for the
// configured severities, to Discord webhooks.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelCritical LogLevel = iota
	LevelError
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
	LevelSystem
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelSuccess:
		return "SUCCESS"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string {
	switch l {
	case LevelCritical:
		return "\033[1;31m"
	case LevelError:
		return "\033[31m"
	case LevelWarn:
		return "\033[33m"
	case LevelSuccess:
		return "\033[32m"
	case LevelInfo:
		return "\033[36m"
	case LevelDebug:
		return "\033[35m"
	case LevelSystem:
		return "\033[34m"
	default:
		return colorReset
	}
}

// DiscordColor returns the Discord embed color for the log level
func (l LogLevel) DiscordColor() int {
	switch l {
	case LevelCritical, LevelError:
		return 0xFF0000
	case LevelWarn:
		return 0xFFFF00
	case LevelSuccess:
		return 0x00FF00
	case LevelInfo:
		return 0x0000FF
	case LevelDebug:
		return 0x800080
	case LevelSystem:
		return 0x808080
	default:
		return 0xFFFFFF
	}
}

// logrusLevel maps a bot level onto the closest logrus level
func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelCritical, LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

const colorReset = "\033[0m"

// entry field keys
const (
	fieldLevel  = "bot_level"
	fieldPrefix = "prefix"
)

// Options configures a Logger
type Options struct {
	// Dir receives combined.log and error.log. Empty disables file output.
	Dir string
	// Output is the console writer, os.Stdout when nil
	Output          io.Writer
	ErrorWebhookURL string
	LogsWebhookURL  string
	// Debug enables LevelDebug entries
	Debug bool
	// NoColor strips ANSI codes from the console
	NoColor bool
}

// Logger is the main logging structure
type Logger struct {
	logrus  *logrus.Logger
	files   *fileHook
	webhook *webhookHook
}

var (
	logger *Logger
	once   sync.Once
)

// Init initializes the global logger instance. Only the first call wins.
func Init(opts Options) *Logger {
	once.Do(func() {
		logger = New(opts)
	})
	return logger
}

// Get returns the global logger instance, a console-only logger if Init was
// never called.
func Get() *Logger {
	once.Do(func() {
		logger = New(Options{Debug: true})
	})
	return logger
}

// New creates a Logger
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	lr := logrus.New()
	lr.SetOutput(out)
	lr.SetFormatter(&consoleFormatter{colors: !opts.NoColor})
	lr.SetLevel(logrus.InfoLevel)
	if opts.Debug {
		lr.SetLevel(logrus.DebugLevel)
	}

	l := &Logger{logrus: lr}

	if opts.Dir != "" {
		files, err := newFileHook(opts.Dir)
		if err != nil {
			fmt.Fprintf(out, "Impossible d'ouvrir les fichiers de logs : %v\n", err)
		} else {
			l.files = files
			lr.AddHook(files)
		}
	}

	if opts.ErrorWebhookURL != "" || opts.LogsWebhookURL != "" {
		l.webhook = newWebhookHook(opts.ErrorWebhookURL, opts.LogsWebhookURL)
		lr.AddHook(l.webhook)
	}

	return l
}

func (l *Logger) log(level LogLevel, message string, prefix string) {
	l.logrus.WithFields(logrus.Fields{
		fieldLevel:  level,
		fieldPrefix: prefix,
	}).Log(level.logrusLevel(), message)
}

// Close flushes pending webhooks and closes the log files
func (l *Logger) Close() {
	if l.webhook != nil {
		l.webhook.Wait()
	}
	if l.files != nil {
		l.files.Close()
	}
}

// Critical logs a critical message
func (l *Logger) Critical(message string, prefix string) {
	l.log(LevelCritical, message, prefix)
}

// Error logs an error message
func (l *Logger) Error(message string, prefix string) {
	l.log(LevelError, message, prefix)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, prefix string) {
	l.log(LevelWarn, message, prefix)
}

// Success logs a success message
func (l *Logger) Success(message string, prefix string) {
	l.log(LevelSuccess, message, prefix)
}

// Info logs an info message
func (l *Logger) Info(message string, prefix string) {
	l.log(LevelInfo, message, prefix)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, prefix string) {
	l.log(LevelDebug, message, prefix)
}

// System logs a system message
func (l *Logger) System(message string, prefix string) {
	l.log(LevelSystem, message, prefix)
}

// Critical logs a critical message using the global logger
func Critical(message string, prefix string) {
	Get().Critical(message, prefix)
}

// Error logs an error message using the global logger
func Error(message string, prefix string) {
	Get().Error(message, prefix)
}

// Warn logs a warning message using the global logger
func Warn(message string, prefix string) {
	Get().Warn(message, prefix)
}

// Success logs a success message using the global logger
func Success(message string, prefix string) {
	Get().Success(message, prefix)
}

// Info logs an info message using the global logger
func Info(message string, prefix string) {
	Get().Info(message, prefix)
}

// Debug logs a debug message using the global logger
func Debug(message string, prefix string) {
	Get().Debug(message, prefix)
}

// System logs a system message using the global logger
func System(message string, prefix string) {
	Get().System(message, prefix)
}

// levelOf recovers the bot level stored on an entry
func levelOf(e *logrus.Entry) LogLevel {
	if lvl, ok := e.Data[fieldLevel].(LogLevel); ok {
		return lvl
	}
	switch e.Level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return LevelCritical
	case logrus.ErrorLevel:
		return LevelError
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug
	default:
		return LevelInfo
	}
}

func prefixOf(e *logrus.Entry) string {
	p, _ := e.Data[fieldPrefix].(string)
	return p
}

// Writer exposes the logger as an io.Writer at the given level, for
// libraries that expect a standard logger.
func (l *Logger) Writer(level LogLevel, prefix string) *io.PipeWriter {
	return l.logrus.WithFields(logrus.Fields{
		fieldLevel:  level,
		fieldPrefix: prefix,
	}).WriterLevel(level.logrusLevel())
}

// filesIn returns the paths written by a file hook in dir
func filesIn(dir string) (combined, errors string) {
	return filepath.Join(dir, "combined.log"), filepath.Join(dir, "error.log")
}
