package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecordPrompt(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))

	obs, err := newWithProvider("sales-assistant-test", provider)
	require.NoError(t, err)

	ctx := context.Background()
	obs.RecordPrompt(ctx, "list_projects", "success", 120*time.Millisecond)
	obs.RecordPrompt(ctx, "unknown", "unhandled", 5*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]bool{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = true
		if m.Name == "prompts.processed" {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			assert.Len(t, sum.DataPoints, 2)
		}
	}
	assert.True(t, names["prompts.processed"])
	assert.True(t, names["prompts.duration"])

	require.NoError(t, obs.Shutdown(ctx))
}

func TestNoop(t *testing.T) {
	obs := NewNoop()
	ctx, span := obs.StartSpan(context.Background(), "assistant.classify")
	defer span.End()

	obs.RecordPrompt(ctx, "list_leads", "success", time.Millisecond)
	assert.NoError(t, obs.Shutdown(ctx))
}
