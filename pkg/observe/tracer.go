package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for store spans.
const defaultTracerName = "vstore"

// TracerConfig configures the OpenTelemetry observer.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "vstore").
	TracerName string

	// Tracer overrides the tracer resolved from the global provider.
	Tracer trace.Tracer

	// SilentUpdates also traces updates that notified no listener.
	SilentUpdates bool
}

// TracerOption configures the OpenTelemetry observer.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer explicitly.
func WithTracer(tracer trace.Tracer) TracerOption {
	return func(c *TracerConfig) {
		c.Tracer = tracer
	}
}

// WithSilentUpdates enables spans for updates that notified nobody.
func WithSilentUpdates(enabled bool) TracerOption {
	return func(c *TracerConfig) {
		c.SilentUpdates = enabled
	}
}

// Tracer records update cycles and rejected partials as spans.
//
// Spans are created after the fact from the event's Start and Duration,
// so the store itself never carries a context.
type Tracer struct {
	config TracerConfig
}

// NewTracer creates a tracing observer. The tracer uses the global
// OpenTelemetry tracer provider unless WithTracer is given.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer(config.TracerName)
	}
	return &Tracer{config: config}
}

func (t *Tracer) OnEvent(event Event) {
	switch event.Type {
	case EventUpdate:
		if event.Notified == 0 && !t.config.SilentUpdates {
			return
		}
	case EventRejected:
	default:
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("vstore.store", event.Store),
		attribute.Int64("vstore.version", int64(event.Version)),
		attribute.Int("vstore.subscribers", event.Subscribers),
	}
	if event.Type == EventUpdate {
		attrs = append(attrs,
			attribute.Int("vstore.notified", event.Notified),
			attribute.Bool("vstore.replaced", event.Replaced),
		)
	}

	_, span := t.config.Tracer.Start(
		context.Background(),
		string(event.Type),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(event.Start),
	)

	if event.Err != nil {
		span.RecordError(event.Err)
		span.SetStatus(codes.Error, event.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End(trace.WithTimestamp(event.Start.Add(event.Duration)))
}
