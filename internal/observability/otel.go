// Package observability provides OpenTelemetry integration for metrics,
// tracing, and logging. Traces and logs export over OTLP http/protobuf;
// metrics are exposed through Prometheus.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config holds OpenTelemetry configuration
type Config struct {
	ServiceName      string
	ServiceVersion   string
	Environment      string
	TraceSampleRatio float64
	OTLP             OTLPExporterConfig
}

// OTLPExporterConfig holds OTLP exporter configuration options
type OTLPExporterConfig struct {
	Endpoint string
	Insecure bool
	Headers  map[string]string
	Timeout  time.Duration
}

func buildResource(cfg Config) (*resource.Resource, error) {
	// No schema URL to avoid merge conflicts with resource.Default().
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// MeterProvider wraps the OpenTelemetry meter provider
type MeterProvider struct {
	provider *metric.MeterProvider
	exporter *prometheus.Exporter
}

// InitMeterProvider initializes OpenTelemetry metrics with Prometheus exporter
func InitMeterProvider(cfg Config) (*MeterProvider, error) {
	res, err := buildResource(cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	return &MeterProvider{
		provider: provider,
		exporter: exporter,
	}, nil
}

// Shutdown gracefully shuts down the meter provider
func (mp *MeterProvider) Shutdown(ctx context.Context, logger *slog.Logger) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := mp.provider.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown meter provider", slog.String("error", err.Error()))
		return err
	}

	logger.Info("meter provider shutdown successfully")
	return nil
}

// Exporter returns the Prometheus exporter for the metrics HTTP handler
func (mp *MeterProvider) Exporter() *prometheus.Exporter {
	return mp.exporter
}

// TracerProvider wraps the OpenTelemetry tracer provider
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

func isHTTPEndpointURL(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}

func buildTraceExporterOptions(cfg OTLPExporterConfig) []otlptracehttp.Option {
	var opts []otlptracehttp.Option

	if isHTTPEndpointURL(cfg.Endpoint) {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracehttp.WithTimeout(cfg.Timeout))
	}

	return opts
}

// InitTracerProvider initializes OpenTelemetry tracing with an OTLP exporter
func InitTracerProvider(cfg Config) (*TracerProvider, error) {
	res, err := buildResource(cfg)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracehttp.New(context.Background(), buildTraceExporterOptions(cfg.OTLP)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithSampler(traceSamplerForRatio(cfg.TraceSampleRatio)),
	)
	otel.SetTracerProvider(provider)

	return &TracerProvider{
		provider: provider,
	}, nil
}

func traceSamplerForRatio(ratio float64) sdktrace.Sampler {
	switch {
	case ratio <= 0:
		return sdktrace.NeverSample()
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Shutdown gracefully shuts down the tracer provider
func (tp *TracerProvider) Shutdown(ctx context.Context, logger *slog.Logger) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := tp.provider.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer provider", slog.String("error", err.Error()))
		return err
	}

	logger.Info("tracer provider shutdown successfully")
	return nil
}

// LoggerProvider wraps the OpenTelemetry logger provider
type LoggerProvider struct {
	provider *log.LoggerProvider
}

func buildLogExporterOptions(cfg OTLPExporterConfig) []otlploghttp.Option {
	var opts []otlploghttp.Option

	if isHTTPEndpointURL(cfg.Endpoint) {
		opts = append(opts, otlploghttp.WithEndpointURL(cfg.Endpoint))
	} else {
		opts = append(opts, otlploghttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.Headers))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(cfg.Timeout))
	}

	return opts
}

// InitLoggerProvider initializes OpenTelemetry logging with an OTLP exporter
func InitLoggerProvider(cfg Config) (*LoggerProvider, error) {
	res, err := buildResource(cfg)
	if err != nil {
		return nil, err
	}

	logExporter, err := otlploghttp.New(context.Background(), buildLogExporterOptions(cfg.OTLP)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	provider := log.NewLoggerProvider(
		log.WithResource(res),
		log.WithProcessor(log.NewBatchProcessor(logExporter)),
	)

	return &LoggerProvider{
		provider: provider,
	}, nil
}

// Shutdown gracefully shuts down the logger provider
func (lp *LoggerProvider) Shutdown(ctx context.Context, logger *slog.Logger) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := lp.provider.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown logger provider", slog.String("error", err.Error()))
		return err
	}

	logger.Info("logger provider shutdown successfully")
	return nil
}

// Provider returns the underlying logger provider
func (lp *LoggerProvider) Provider() *log.LoggerProvider {
	return lp.provider
}
