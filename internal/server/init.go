package server

import (
	"context"
	"fmt"
	"log/slog"

	"modelql/internal/entityschema"
	"modelql/internal/resolver"
)

// Init initializes all runtime resources. It is idempotent.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	if a.initialized {
		a.stateMu.Unlock()
		return nil
	}
	a.stateMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	cleanup := cleanupStack{}
	success := false
	defer func() {
		if !success {
			cleanup.run(context.Background(), a.logger)
		}
	}()

	if a.loggerProvider != nil {
		cleanup.push("logger provider", func(shutdownCtx context.Context) error {
			return a.loggerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	meterProvider, queryMetrics, err := initMetrics(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry metrics: %w", err)
	}
	if meterProvider != nil {
		cleanup.push("meter provider", func(shutdownCtx context.Context) error {
			return meterProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	tracerProvider, err := initTracing(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry tracing: %w", err)
	}
	if tracerProvider != nil {
		cleanup.push("tracer provider", func(shutdownCtx context.Context) error {
			return tracerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	schema, err := entityschema.Build(a.cfg.Model.Entities)
	if err != nil {
		return fmt.Errorf("failed to build entity schema: %w", err)
	}
	a.logger.Info("entity schema built", slog.Int("entities", len(schema.Entities())))

	a.logger.Info("connecting to database",
		slog.String("host", a.cfg.Database.Host),
		slog.Int("port", a.cfg.Database.Port),
		slog.String("database", a.cfg.Database.Database),
	)

	db, dbStatsReg, err := connectDB(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup.push("database", func(_ context.Context) error {
		if dbStatsReg != nil {
			if err := dbStatsReg.Unregister(); err != nil {
				a.logger.Warn("failed to unregister DB stats metrics", slog.String("error", err.Error()))
			}
		}
		return db.Close()
	})

	if err := configureDatabase(ctx, a.cfg, a.logger, db); err != nil {
		return fmt.Errorf("failed to verify database connection: %w", err)
	}

	engine := resolver.New(schema,
		resolver.WithLogger(a.logger.Logger),
		resolver.WithPageDefaults(a.cfg.Server.DefaultPerPage, a.cfg.Server.MaxPerPage),
	)

	graphqlHandler, err := buildGraphQLHandler(a.cfg, a.logger, engine, queryMetrics, db)
	if err != nil {
		return fmt.Errorf("failed to initialize GraphQL handler: %w", err)
	}

	mux := buildRouter(a.cfg, a.logger, db, graphqlHandler, meterProvider)
	handler := wrapHTTPHandler(a.cfg, a.logger, mux)

	serverAddr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	srv := buildServer(a.cfg, handler, serverAddr)
	cleanup.push("HTTP server", func(shutdownCtx context.Context) error {
		return srv.Shutdown(shutdownCtx)
	})

	a.stateMu.Lock()
	a.meterProvider = meterProvider
	a.queryMetrics = queryMetrics
	a.tracerProvider = tracerProvider
	a.db = db
	a.dbStatsReg = dbStatsReg
	a.schema = schema
	a.engine = engine
	a.graphqlHandler = graphqlHandler
	a.mux = mux
	a.handler = handler
	a.serverAddr = serverAddr
	a.srv = srv
	a.cleanup = cleanup
	a.initialized = true
	a.stateMu.Unlock()

	success = true
	return nil
}
