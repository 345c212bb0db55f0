package logging

import (
	"context"
	"sync"
)

// LogFunc receives a printf-style message.
type LogFunc func(format string, args ...any)

// Loggers is the set of log sinks used by the dispatch engine.
// Nil fields fall back to the defaults when merged.
type Loggers struct {
	Log        LogFunc
	Warn       LogFunc
	Error      LogFunc
	GroupStart LogFunc
	GroupEnd   LogFunc
}

var (
	defaultLogger     *Logger
	defaultLoggerOnce sync.Once
)

// Default returns the process default logger, writing to stderr.
func Default() *Logger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = New(DefaultConfig())
	})
	return defaultLogger
}

// FromLogger builds a complete logger set backed by l.
func FromLogger(l *Logger) Loggers {
	return Loggers{
		Log:        l.Info,
		Warn:       l.Warn,
		Error:      l.Error,
		GroupStart: l.GroupStart,
		GroupEnd:   l.GroupEnd,
	}
}

// Defaults returns the logger set backed by Default().
func Defaults() Loggers {
	return FromLogger(Default())
}

// Merge returns base with every non-nil field of overrides applied.
func Merge(base, overrides Loggers) Loggers {
	if overrides.Log != nil {
		base.Log = overrides.Log
	}
	if overrides.Warn != nil {
		base.Warn = overrides.Warn
	}
	if overrides.Error != nil {
		base.Error = overrides.Error
	}
	if overrides.GroupStart != nil {
		base.GroupStart = overrides.GroupStart
	}
	if overrides.GroupEnd != nil {
		base.GroupEnd = overrides.GroupEnd
	}
	return base
}

// Complete reports whether every sink is set.
func (l Loggers) Complete() bool {
	return l.Log != nil && l.Warn != nil && l.Error != nil && l.GroupStart != nil && l.GroupEnd != nil
}

type loggersKey struct{}

// WithLoggers returns a context carrying l.
func WithLoggers(ctx context.Context, l Loggers) context.Context {
	return context.WithValue(ctx, loggersKey{}, l)
}

// FromContext returns the loggers carried by ctx, or Defaults().
func FromContext(ctx context.Context) Loggers {
	if l, ok := ctx.Value(loggersKey{}).(Loggers); ok {
		return l
	}
	return Defaults()
}
