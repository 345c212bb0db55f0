package cli

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/keyframe/internal/logging"
)

// logSpanProcessor writes each finished span as a debug line.
type logSpanProcessor struct {
	log *logging.Logger
}

func (p logSpanProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p logSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	fields := map[string]any{
		"duration": s.EndTime().Sub(s.StartTime()),
		"status":   s.Status().Code.String(),
	}
	for _, attr := range s.Attributes() {
		fields[string(attr.Key)] = attr.Value.Emit()
	}
	p.log.WithFields(fields).Debug("span %s", s.Name())
}

func (p logSpanProcessor) Shutdown(context.Context) error   { return nil }
func (p logSpanProcessor) ForceFlush(context.Context) error { return nil }

// newTracer installs a tracer provider that logs spans and returns a
// tracer plus its shutdown function.
func newTracer(log *logging.Logger) (trace.Tracer, func(context.Context) error) {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(logSpanProcessor{log: log.WithComponent("trace")}),
	)
	otel.SetTracerProvider(provider)
	return provider.Tracer("github.com/dshills/keyframe"), provider.Shutdown
}
