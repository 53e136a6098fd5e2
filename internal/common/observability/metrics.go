package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Observability records request-level telemetry through OpenTelemetry. Metrics
// are exported on the default prometheus registry.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracer         trace.Tracer
	promptCounter  otelmetric.Int64Counter
	promptDuration otelmetric.Float64Histogram
}

func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return newWithProvider(serviceName, provider)
}

func newWithProvider(serviceName string, provider *metric.MeterProvider) (*Observability, error) {
	meter := provider.Meter(serviceName)

	promptCounter, err := meter.Int64Counter(
		"prompts.processed",
		otelmetric.WithDescription("Number of prompts handled end to end"),
	)
	if err != nil {
		return nil, err
	}

	promptDuration, err := meter.Float64Histogram(
		"prompts.duration",
		otelmetric.WithDescription("Prompt handling duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Observability{
		meterProvider:  provider,
		tracer:         otel.Tracer(serviceName),
		promptCounter:  promptCounter,
		promptDuration: promptDuration,
	}, nil
}

// NewNoop returns an Observability that records nothing.
func NewNoop() *Observability {
	return &Observability{tracer: otel.Tracer("noop")}
}

// StartSpan starts a span on the global tracer provider.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordPrompt(ctx context.Context, intent, status string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("intent", intent),
		attribute.String("status", status),
	)
	if o.promptCounter != nil {
		o.promptCounter.Add(ctx, 1, attrs)
	}
	if o.promptDuration != nil {
		o.promptDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}
