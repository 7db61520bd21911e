package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/graphql-go/handler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"modelql/internal/config"
	"modelql/internal/dbexec"
	"modelql/internal/logging"
	"modelql/internal/observability"
	"modelql/internal/resolver"
)

// InitLogger builds the process logger, optionally backed by an OTLP log
// exporter when exports are enabled.
func InitLogger(cfg *config.Config) (*logging.Logger, *observability.LoggerProvider, error) {
	loggerCfg := logging.Config{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	}
	logger := logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	if !cfg.Observability.Logging.ExportsEnabled {
		return logger, nil, nil
	}

	logger.Info("initializing OpenTelemetry logging",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("otlp_endpoint", cfg.Observability.OTLP.Endpoint),
		slog.Bool("insecure", cfg.Observability.OTLP.Insecure),
	)

	loggerProvider, err := observability.InitLoggerProvider(observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
		OTLP: observability.OTLPExporterConfig{
			Endpoint: cfg.Observability.OTLP.Endpoint,
			Insecure: cfg.Observability.OTLP.Insecure,
			Headers:  cfg.Observability.OTLP.Headers,
			Timeout:  cfg.Observability.OTLP.Timeout,
		},
	})
	if err != nil {
		return nil, nil, err
	}

	loggerCfg.LoggerProvider = loggerProvider.Provider()
	logger = logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	logger.Info("OpenTelemetry logging initialized successfully")
	return logger, loggerProvider, nil
}

func initMetrics(cfg *config.Config, logger *logging.Logger) (*observability.MeterProvider, *observability.QueryMetrics, error) {
	if !cfg.Observability.MetricsEnabled {
		return nil, nil, nil
	}

	logger.Info("initializing OpenTelemetry metrics",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("environment", cfg.Observability.Environment),
	)

	meterProvider, err := observability.InitMeterProvider(observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
	})
	if err != nil {
		return nil, nil, err
	}

	queryMetrics, err := observability.InitMetrics(logger.Logger)
	if err != nil {
		return nil, nil, err
	}

	return meterProvider, queryMetrics, nil
}

func initTracing(cfg *config.Config, logger *logging.Logger) (*observability.TracerProvider, error) {
	if !cfg.Observability.TracingEnabled {
		return nil, nil
	}

	logger.Info("initializing OpenTelemetry tracing",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("otlp_endpoint", cfg.Observability.OTLP.Endpoint),
		slog.Bool("insecure", cfg.Observability.OTLP.Insecure),
	)

	tracerProvider, err := observability.InitTracerProvider(observability.Config{
		ServiceName:      cfg.Observability.ServiceName,
		ServiceVersion:   cfg.Observability.ServiceVersion,
		Environment:      cfg.Observability.Environment,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
		OTLP: observability.OTLPExporterConfig{
			Endpoint: cfg.Observability.OTLP.Endpoint,
			Insecure: cfg.Observability.OTLP.Insecure,
			Headers:  cfg.Observability.OTLP.Headers,
			Timeout:  cfg.Observability.OTLP.Timeout,
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("OpenTelemetry tracing initialized successfully")
	return tracerProvider, nil
}

func connectDB(cfg *config.Config, logger *logging.Logger) (*sql.DB, interface{ Unregister() error }, error) {
	dsn := cfg.Database.DSN()

	if cfg.Observability.MetricsEnabled || cfg.Observability.TracingEnabled {
		opts := []otelsql.Option{
			otelsql.WithAttributes(semconv.DBSystemMySQL),
		}
		if cfg.Observability.TracingEnabled {
			opts = append(opts, otelsql.WithSpanOptions(otelsql.SpanOptions{
				DisableErrSkip: true,
			}))
		}

		db, err := otelsql.Open("mysql", dsn, opts...)
		if err != nil {
			return nil, nil, err
		}

		var dbStatsReg interface{ Unregister() error }
		if cfg.Observability.MetricsEnabled {
			dbStatsReg, err = otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(semconv.DBSystemMySQL))
			if err != nil {
				logger.Warn("failed to register DB stats metrics", slog.String("error", err.Error()))
			}
		}

		logger.Info("database instrumentation enabled",
			slog.Bool("metrics", cfg.Observability.MetricsEnabled),
			slog.Bool("tracing", cfg.Observability.TracingEnabled),
		)
		return db, dbStatsReg, nil
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}
	return db, nil, nil
}

func configureDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger, db *sql.DB) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db.SetMaxOpenConns(cfg.Database.Pool.MaxOpen)
	db.SetMaxIdleConns(cfg.Database.Pool.MaxIdle)
	db.SetConnMaxLifetime(cfg.Database.Pool.MaxLifetime)

	if err := waitForDatabase(ctx, cfg, logger, db); err != nil {
		return err
	}

	logger.Info("connected to database",
		slog.String("database", cfg.Database.Database),
		slog.Int("pool_max_open", cfg.Database.Pool.MaxOpen),
		slog.Int("pool_max_idle", cfg.Database.Pool.MaxIdle),
		slog.Duration("pool_max_lifetime", cfg.Database.Pool.MaxLifetime),
	)
	return nil
}

func waitForDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger, db *sql.DB) error {
	timeout := cfg.Database.ConnectionTimeout
	interval := cfg.Database.ConnectionRetryInterval

	// If timeout is 0, try once and fail immediately.
	if timeout == 0 {
		return db.PingContext(ctx)
	}

	deadline := time.Now().Add(timeout)
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempt++
		err := db.PingContext(ctx)

		if err == nil {
			if attempt > 1 {
				logger.Info("database connection established", slog.Int("attempts", attempt))
			}
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("database not available after %v: %w", timeout, err)
		}

		logger.Warn("database not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", interval),
			slog.String("error", err.Error()),
		)
		time.Sleep(interval)

		// Exponential backoff, capped at 30s
		interval = min(interval*2, 30*time.Second)
	}
}

func buildGraphQLHandler(cfg *config.Config, logger *logging.Logger, engine *resolver.Engine, queryMetrics *observability.QueryMetrics, db *sql.DB) (http.Handler, error) {
	schema, err := resolver.NewSurface(engine).BuildSchema()
	if err != nil {
		return nil, err
	}

	graphqlHandler := handler.New(&handler.Config{
		Schema:     &schema,
		Pretty:     true,
		GraphiQL:   cfg.Server.GraphiQLEnabled,
		Playground: false,
	})

	session := dbexec.NewSession(db)

	// Middleware order, outermost first:
	//   logging -> mutation tx -> session -> metrics -> graphql
	// The mutation middleware must see the raw request before the session is
	// attached so its transaction context wins for mutation resolvers.
	var h http.Handler = graphqlHandler
	if cfg.Observability.MetricsEnabled && queryMetrics != nil {
		h = MetricsMiddleware(queryMetrics)(h)
		logger.Info("GraphQL metrics middleware enabled")
	}
	h = SessionMiddleware(session)(h)
	h = MutationTransactionMiddleware(session)(h)
	return LoggingMiddleware(logger)(h), nil
}

func buildRouter(cfg *config.Config, logger *logging.Logger, db *sql.DB, graphqlHandler http.Handler, meterProvider *observability.MeterProvider) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/graphql", graphqlHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/graphql", http.StatusFound)
			return
		}
		http.NotFound(w, r)
	})

	mux.HandleFunc("/health", healthHandler(db, 2*time.Second))

	if cfg.Observability.MetricsEnabled && meterProvider != nil {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("metrics endpoint enabled", slog.String("path", "/metrics"))
	}

	return mux
}

func wrapHTTPHandler(cfg *config.Config, logger *logging.Logger, handler http.Handler) http.Handler {
	if cfg.Observability.MetricsEnabled || cfg.Observability.TracingEnabled {
		handler = otelhttp.NewHandler(handler, "http.server",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return httpRootSpanName(r)
			}),
			otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
		)
		logger.Info("HTTP instrumentation enabled")
	}

	if cfg.Server.CORS.Enabled {
		handler = CORSMiddleware(cfg.Server.CORS)(handler)
		logger.Info("CORS enabled",
			slog.Any("allowed_origins", cfg.Server.CORS.AllowedOrigins),
		)
	}

	if cfg.Server.RateLimit.Enabled {
		handler = RateLimitMiddleware(cfg.Server.RateLimit)(handler)
		logger.Info("rate limiting enabled",
			slog.Float64("rps", cfg.Server.RateLimit.RPS),
			slog.Int("burst", cfg.Server.RateLimit.Burst),
		)
	}

	return handler
}

func httpRootSpanName(r *http.Request) string {
	if r == nil {
		return "HTTP /*"
	}

	method := strings.TrimSpace(r.Method)
	if method == "" {
		method = "HTTP"
	}

	return method + " " + normalizeHTTPSpanRoute(r.URL.Path)
}

func normalizeHTTPSpanRoute(rawPath string) string {
	switch rawPath {
	case "/", "/graphql", "/health", "/metrics":
		return rawPath
	default:
		return "/*"
	}
}

func buildServer(cfg *config.Config, handler http.Handler, serverAddr string) *http.Server {
	return &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func startServer(cfg *config.Config, logger *logging.Logger, srv *http.Server, serverAddr string) chan error {
	serverErrors := make(chan error, 1)
	go func() {
		logAttrs := []any{
			slog.String("address", serverAddr),
			slog.String("graphql_endpoint", "/graphql"),
			slog.String("health_endpoint", "/health"),
			slog.Int("default_per_page", cfg.Server.DefaultPerPage),
			slog.Int("max_per_page", cfg.Server.MaxPerPage),
			slog.String("log_level", cfg.Observability.Logging.Level),
			slog.String("log_format", cfg.Observability.Logging.Format),
		}
		if cfg.Observability.MetricsEnabled {
			logAttrs = append(logAttrs, slog.String("metrics_endpoint", "/metrics"))
		}

		logger.Info("server starting", logAttrs...)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed: %w", err)
		}
	}()
	return serverErrors
}

// healthHandler returns an HTTP handler for health checks
func healthHandler(db *sql.DB, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.FromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			reqLogger.Error("health check failed",
				slog.String("error", err.Error()),
				slog.String("check", "database"),
			)
			w.WriteHeader(http.StatusServiceUnavailable)
			// Generic error message to avoid leaking internal details.
			_, _ = fmt.Fprint(w, `{"status":"unhealthy","database":"failed"}`)
			return
		}

		reqLogger.Debug("health check passed")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, `{"status":"healthy","database":"ok"}`)
	}
}
