package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, structured).
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes human-readable logs to stdout/stderr.
type ConsoleLogger struct {
	debug bool
}

// NewConsoleLogger returns a console logger. Debug lines are printed only
// when debug is true.
func NewConsoleLogger(debug bool) *ConsoleLogger {
	return &ConsoleLogger{debug: debug}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	fmt.Printf("[INFO] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if !c.debug {
		return
	}
	fmt.Printf("[DEBUG] "+msg+"\n", args...)
}

// SilentLogger discards all log messages.
// Used by the TUI and the MCP stdio server, where stdout belongs to the protocol or the display.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}

// SlogLogger adapts the printf-style Logger interface onto a log/slog handler,
// so agents running unattended emit structured text or JSON records.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger builds a structured logger writing to w (stderr when nil).
// format is "text" or "json"; level is "debug", "info" or "error".
func NewSlogLogger(w io.Writer, format, level string) *SlogLogger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return &SlogLogger{l: slog.New(handler)}
}

// With returns a logger carrying a component attribute.
func (s *SlogLogger) With(component string) *SlogLogger {
	return &SlogLogger{l: s.l.With(slog.String("component", component))}
}

func (s *SlogLogger) Info(msg string, args ...interface{}) {
	s.l.Info(fmt.Sprintf(msg, args...))
}

func (s *SlogLogger) Error(msg string, args ...interface{}) {
	s.l.Error(fmt.Sprintf(msg, args...))
}

func (s *SlogLogger) Debug(msg string, args ...interface{}) {
	s.l.Debug(fmt.Sprintf(msg, args...))
}

// ParseLevel maps a config string onto a slog level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
