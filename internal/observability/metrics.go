package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QueryMetrics holds custom metrics for GraphQL query and mutation execution.
type QueryMetrics struct {
	requestDuration    metric.Float64Histogram
	requestCounter     metric.Int64Counter
	errorCounter       metric.Int64Counter
	activeRequests     metric.Int64UpDownCounter
	listResultRows     metric.Int64Histogram
	prefetchParents    metric.Int64Histogram
	prefetchResultRows metric.Int64Histogram
	mutationCounter    metric.Int64Counter
}

// InitQueryMetrics initializes the engine-specific metrics.
func InitQueryMetrics() (*QueryMetrics, error) {
	meter := otel.Meter("modelql")

	requestDuration, err := meter.Float64Histogram(
		"graphql.request.duration",
		metric.WithDescription("Duration of GraphQL requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	requestCounter, err := meter.Int64Counter(
		"graphql.requests.total",
		metric.WithDescription("Total number of GraphQL requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"graphql.errors.total",
		metric.WithDescription("Total number of GraphQL errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"graphql.requests.active",
		metric.WithDescription("Number of active GraphQL requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}

	listResultRows, err := meter.Int64Histogram(
		"engine.list.result_rows",
		metric.WithDescription("Number of rows returned by list queries"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create list result rows histogram: %w", err)
	}

	prefetchParents, err := meter.Int64Histogram(
		"engine.prefetch.parent_count",
		metric.WithDescription("Number of parent keys included in a relationship prefetch"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prefetch parent count histogram: %w", err)
	}

	prefetchResultRows, err := meter.Int64Histogram(
		"engine.prefetch.result_rows",
		metric.WithDescription("Number of rows returned by a relationship prefetch"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prefetch result rows histogram: %w", err)
	}

	mutationCounter, err := meter.Int64Counter(
		"engine.mutations.total",
		metric.WithDescription("Total number of mutations by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mutation counter: %w", err)
	}

	return &QueryMetrics{
		requestDuration:    requestDuration,
		requestCounter:     requestCounter,
		errorCounter:       errorCounter,
		activeRequests:     activeRequests,
		listResultRows:     listResultRows,
		prefetchParents:    prefetchParents,
		prefetchResultRows: prefetchResultRows,
		mutationCounter:    mutationCounter,
	}, nil
}

// RecordRequest records a GraphQL request with its duration and outcome
func (m *QueryMetrics) RecordRequest(ctx context.Context, duration time.Duration, hasErrors bool, operationType string) {
	attrs := []attribute.KeyValue{
		attribute.String("operation_type", operationType),
		attribute.Bool("has_errors", hasErrors),
	}

	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	m.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if hasErrors {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation_type", operationType),
		))
	}
}

// RecordListResultRows records how many rows a list query returned.
func (m *QueryMetrics) RecordListResultRows(ctx context.Context, count int64, entity string) {
	m.listResultRows.Record(ctx, count, metric.WithAttributes(
		attribute.String("entity", entity),
	))
}

// RecordPrefetch records one relationship prefetch round trip.
func (m *QueryMetrics) RecordPrefetch(ctx context.Context, parents, rows int64, relationship string) {
	attrs := metric.WithAttributes(attribute.String("relationship", relationship))
	m.prefetchParents.Record(ctx, parents, attrs)
	m.prefetchResultRows.Record(ctx, rows, attrs)
}

// RecordMutation counts one executed mutation ("create", "update", "delete").
func (m *QueryMetrics) RecordMutation(ctx context.Context, kind string, entity string) {
	m.mutationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("entity", entity),
	))
}

// IncrementActiveRequests increments the active requests counter
func (m *QueryMetrics) IncrementActiveRequests(ctx context.Context) {
	m.activeRequests.Add(ctx, 1)
}

// DecrementActiveRequests decrements the active requests counter
func (m *QueryMetrics) DecrementActiveRequests(ctx context.Context) {
	m.activeRequests.Add(ctx, -1)
}

// InitMetrics initializes all custom metrics and returns the QueryMetrics instance
func InitMetrics(logger *slog.Logger) (*QueryMetrics, error) {
	metrics, err := InitQueryMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize query metrics: %w", err)
	}

	logger.Info("custom query metrics initialized")
	return metrics, nil
}

type queryMetricsContextKey struct{}

// ContextWithQueryMetrics stores query metrics in the provided context.
func ContextWithQueryMetrics(ctx context.Context, metrics *QueryMetrics) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, queryMetricsContextKey{}, metrics)
}

// QueryMetricsFromContext retrieves query metrics from the context.
func QueryMetricsFromContext(ctx context.Context) *QueryMetrics {
	if ctx == nil {
		return nil
	}
	metrics, _ := ctx.Value(queryMetricsContextKey{}).(*QueryMetrics)
	return metrics
}
