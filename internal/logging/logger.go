// Package logging provides structured logging for the extension server.
// It wraps logrus so every entry carries the emitting component and, during
// a boot run, the boot ID used to correlate lifecycle events.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const alertSeparator = "***********************************************"

// eventField marks entries captured by the event journal.
const eventField = "event"

// Config defines logger configuration.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text" or "json"
	Output io.Writer
}

// DefaultConfig returns the production logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
		Output: os.Stdout,
	}
}

// Logger is a component-scoped logrus entry.
type Logger struct {
	*logrus.Entry
}

// New creates a logger for component using cfg.
func New(component string, cfg Config) (*Logger, error) {
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	base := logrus.New()
	base.SetLevel(level)
	if cfg.Output != nil {
		base.SetOutput(cfg.Output)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return FromLogrus(base, component), nil
}

// NewDefault creates a logger with the default configuration.
func NewDefault(component string) *Logger {
	logger, err := New(component, DefaultConfig())
	if err != nil {
		return NewNop()
	}
	return logger
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return FromLogrus(base, "nop")
}

// FromLogrus scopes an existing logrus logger to component.
func FromLogrus(base *logrus.Logger, component string) *Logger {
	return &Logger{Entry: base.WithField("component", component)}
}

// Named returns a child logger for a sub-component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{Entry: l.Entry.WithField("component", component)}
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields logrus.Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(fields)}
}

// WithBootID returns a child logger tagged with a boot run ID.
func (l *Logger) WithBootID(bootID string) *Logger {
	return &Logger{Entry: l.Entry.WithField("boot_id", bootID)}
}

// Alert reports a condition that should never happen on a healthy platform
// as a warn separator followed by an error entry flagged with alert=true.
// Both lines are subject to the logger level. The separator drops the event
// field so only the error entry is journaled.
func (l *Logger) Alert(msg string, err error) {
	fields := make(logrus.Fields, len(l.Entry.Data))
	for k, v := range l.Entry.Data {
		if k != eventField {
			fields[k] = v
		}
	}
	l.Entry.Logger.WithFields(fields).Warn(alertSeparator)
	l.Entry.WithError(err).WithField("alert", true).Error(msg)
}

// NewBootID returns a fresh identifier for one boot run.
func NewBootID() string {
	return uuid.NewString()
}
