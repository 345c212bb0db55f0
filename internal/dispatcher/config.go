package dispatcher

import (
	"time"

	"github.com/dshills/keyframe/internal/scheduler"
)

// Config holds dispatcher configuration options.
type Config struct {
	// FlushDelay is the pause after a render flush, before handling an
	// event tagged FlushBeforeHandling.
	FlushDelay time.Duration

	// YieldDelay is the pause before handling other queued events.
	// Zero yields the processor once.
	YieldDelay time.Duration

	// EnableMetrics enables per-event timing and statistics collection.
	EnableMetrics bool

	// RecoverFromPanic converts handler panics into *HandlerError.
	RecoverFromPanic bool
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		FlushDelay:       scheduler.DefaultFlushDelay,
		YieldDelay:       0,
		EnableMetrics:    false,
		RecoverFromPanic: true,
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

// WithMetrics returns a copy of the config with metrics enabled.
func (c Config) WithMetrics() Config {
	c.EnableMetrics = true
	return c
}

// WithPanicRecovery returns a copy of the config with panic recovery set.
func (c Config) WithPanicRecovery(recover bool) Config {
	c.RecoverFromPanic = recover
	return c
}
