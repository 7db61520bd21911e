// Package server wires the query engine into an HTTP process: database
// connection, GraphQL endpoint, middleware chain, and lifecycle management.
package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"modelql/internal/config"
	"modelql/internal/entityschema"
	"modelql/internal/logging"
	"modelql/internal/observability"
	"modelql/internal/resolver"
)

// App owns runtime resources for the server lifecycle.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	loggerProvider *observability.LoggerProvider

	meterProvider  *observability.MeterProvider
	queryMetrics   *observability.QueryMetrics
	tracerProvider *observability.TracerProvider

	db         *sql.DB
	dbStatsReg interface{ Unregister() error }

	schema *entityschema.Schema
	engine *resolver.Engine

	graphqlHandler http.Handler
	mux            *http.ServeMux
	handler        http.Handler

	serverAddr string
	srv        *http.Server

	cleanup cleanupStack

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if result := cfg.Validate(); result.HasErrors() {
		return nil, fmt.Errorf("invalid configuration: %s", result.Error())
	}

	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Engine exposes the resolution engine, mainly for tests.
func (a *App) Engine() *resolver.Engine {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.engine
}

// Handler exposes the fully wrapped HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.handler
}
