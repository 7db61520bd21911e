package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestTraceSamplerForRatio(t *testing.T) {
	assert.Equal(t, sdktrace.NeverSample().Description(), traceSamplerForRatio(0).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), traceSamplerForRatio(-1).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), traceSamplerForRatio(1).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), traceSamplerForRatio(2).Description())
	assert.Equal(t,
		sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.5)).Description(),
		traceSamplerForRatio(0.5).Description())
}

func TestBuildTraceExporterOptionsEndpointForms(t *testing.T) {
	// Bare host:port and full URLs both produce options without error.
	assert.NotEmpty(t, buildTraceExporterOptions(OTLPExporterConfig{Endpoint: "localhost:4318"}))
	assert.NotEmpty(t, buildTraceExporterOptions(OTLPExporterConfig{Endpoint: "https://otel.example.com/v1/traces"}))

	assert.False(t, isHTTPEndpointURL("localhost:4318"))
	assert.True(t, isHTTPEndpointURL("http://localhost:4318"))
}

func TestMeterProviderAndMetrics(t *testing.T) {
	mp, err := InitMeterProvider(Config{
		ServiceName:    "modelql-test",
		ServiceVersion: "test",
		Environment:    "test",
	})
	require.NoError(t, err)
	defer func() {
		_ = mp.Shutdown(context.Background(), slog.Default())
	}()
	require.NotNil(t, mp.Exporter())

	metrics, err := InitMetrics(slog.Default())
	require.NoError(t, err)

	// Recording must not panic with a plain context.
	ctx := context.Background()
	metrics.RecordRequest(ctx, 0, false, "query")
	metrics.RecordRequest(ctx, 0, true, "mutation")
	metrics.RecordListResultRows(ctx, 10, "task")
	metrics.RecordPrefetch(ctx, 3, 7, "task.user")
	metrics.RecordMutation(ctx, "create", "task")
	metrics.IncrementActiveRequests(ctx)
	metrics.DecrementActiveRequests(ctx)
}

func TestQueryMetricsContextRoundTrip(t *testing.T) {
	metrics := &QueryMetrics{}
	ctx := ContextWithQueryMetrics(context.Background(), metrics)
	assert.Same(t, metrics, QueryMetricsFromContext(ctx))
	assert.Nil(t, QueryMetricsFromContext(context.Background()))
}
