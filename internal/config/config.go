package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dshills/keyframe/internal/dispatcher"
	"github.com/dshills/keyframe/internal/logging"
)

// Config holds keyframe settings.
type Config struct {
	// FlushDelay is the pause after a render flush.
	FlushDelay time.Duration
	// YieldDelay is the pause before other queued events; zero yields once.
	YieldDelay time.Duration
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogPrefix is prepended to every log line.
	LogPrefix string
	// EnableMetrics turns on dispatcher metrics.
	EnableMetrics bool
	// RecoverFromPanic converts handler panics into errors.
	RecoverFromPanic bool
}

// Default returns the default settings.
func Default() Config {
	d := dispatcher.DefaultConfig()
	l := logging.DefaultConfig()
	return Config{
		FlushDelay:       d.FlushDelay,
		YieldDelay:       d.YieldDelay,
		LogLevel:         strings.ToLower(l.Level.String()),
		LogPrefix:        l.Prefix,
		EnableMetrics:    d.EnableMetrics,
		RecoverFromPanic: d.RecoverFromPanic,
	}
}

// WithFlushDelay returns a copy of the config with the flush delay set.
func (c Config) WithFlushDelay(d time.Duration) Config {
	c.FlushDelay = d
	return c
}

// WithYieldDelay returns a copy of the config with the yield delay set.
func (c Config) WithYieldDelay(d time.Duration) Config {
	c.YieldDelay = d
	return c
}

// WithLogLevel returns a copy of the config with the log level set.
func (c Config) WithLogLevel(level string) Config {
	c.LogLevel = level
	return c
}

// WithMetrics returns a copy of the config with metrics enabled.
func (c Config) WithMetrics() Config {
	c.EnableMetrics = true
	return c
}

// Validate checks every setting.
func (c Config) Validate() error {
	if c.FlushDelay < 0 {
		return fmt.Errorf("%w: flush delay %v is negative", ErrValidationFailed, c.FlushDelay)
	}
	if c.YieldDelay < 0 {
		return fmt.Errorf("%w: yield delay %v is negative", ErrValidationFailed, c.YieldDelay)
	}
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("%w: unknown log level %q", ErrValidationFailed, c.LogLevel)
	}
	return nil
}

// Dispatcher returns the dispatcher settings.
func (c Config) Dispatcher() dispatcher.Config {
	d := dispatcher.DefaultConfig().
		WithFlushDelay(c.FlushDelay).
		WithYieldDelay(c.YieldDelay).
		WithPanicRecovery(c.RecoverFromPanic)
	d.EnableMetrics = c.EnableMetrics
	return d
}

// Logger returns logger settings writing to w.
func (c Config) Logger(w io.Writer) logging.Config {
	return logging.Config{
		Level:  logging.ParseLevel(c.LogLevel),
		Output: w,
		Prefix: c.LogPrefix,
	}
}
