package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelql/internal/config"
	"modelql/internal/logging"
)

func TestHealthHandler(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	h := healthHandler(db, time.Second)

	mock.ExpectPing()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"ok"}`, w.Body.String())

	mock.ExpectPing().WillReturnError(errors.New("gone"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","database":"failed"}`, w.Body.String())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupStackRunsInReverseOrder(t *testing.T) {
	var order []string
	stack := cleanupStack{}
	stack.push("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	stack.push("second", func(context.Context) error {
		order = append(order, "second")
		return errors.New("ignored")
	})
	stack.push("third", func(context.Context) error {
		order = append(order, "third")
		return nil
	})

	stack.run(context.Background(), logging.NewLogger(logging.Config{Level: "error"}))
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestNormalizeHTTPSpanRoute(t *testing.T) {
	assert.Equal(t, "/graphql", normalizeHTTPSpanRoute("/graphql"))
	assert.Equal(t, "/health", normalizeHTTPSpanRoute("/health"))
	assert.Equal(t, "/metrics", normalizeHTTPSpanRoute("/metrics"))
	assert.Equal(t, "/", normalizeHTTPSpanRoute("/"))
	assert.Equal(t, "/*", normalizeHTTPSpanRoute("/favicon.ico"))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	logger := logging.NewLogger(logging.Config{Level: "error"})

	_, err := New(nil, logger)
	require.Error(t, err)

	cfg := &config.Config{}
	_, err = New(cfg, nil)
	require.Error(t, err)

	// Zero-valued config fails validation.
	_, err = New(cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
