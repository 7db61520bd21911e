package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"modelql/internal/dbexec"
	"modelql/internal/logging"
	"modelql/internal/observability"
	"modelql/internal/resolver"
)

// RequestIDHeader is the HTTP header name for request IDs
const RequestIDHeader = "X-Request-ID"

// LoggingMiddleware wraps an HTTP handler with request logging and correlation IDs
func LoggingMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, requestID)

			reqLogger := logger.WithRequestID(requestID).WithFields(slog.String("component", "http"))

			ctx := logging.WithLogger(r.Context(), reqLogger)
			ctx = logging.WithRequestIDContext(ctx, requestID)

			span := trace.SpanFromContext(ctx)
			if span.SpanContext().IsValid() {
				span.SetAttributes(attribute.String("http.request_id", requestID))
			}

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			reqLogger.Log(ctx, slog.LevelInfo, "request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			duration := time.Since(start)
			logLevel := slog.LevelInfo
			if wrapped.statusCode >= 500 {
				logLevel = slog.LevelError
			} else if wrapped.statusCode >= 400 {
				logLevel = slog.LevelWarn
			}

			reqLogger.Log(r.Context(), logLevel, "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", duration),
				slog.Int64("duration_ms", duration.Milliseconds()),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// SessionMiddleware attaches a read session to every GraphQL request. Query
// resolvers pick it up through resolver.SessionFrom; mutations replace it with
// a transaction-bound session one layer further in.
func SessionMiddleware(sess dbexec.Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := resolver.WithSession(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MutationTransactionMiddleware wraps GraphQL mutations in a single
// transaction. The transaction commits when the request finishes without any
// resolver marking an error, and rolls back otherwise. The handler's response
// is buffered until the transaction is finalized, so a failed commit replaces
// the success payload instead of trailing after it.
func MutationTransactionMiddleware(starter dbexec.TxStarter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if starter == nil {
				next.ServeHTTP(w, r)
				return
			}

			query, operationName := extractGraphQLRequest(r)
			opType, ok := resolveOperationType(query, operationName)
			if !ok || opType != ast.OperationTypeMutation {
				next.ServeHTTP(w, r)
				return
			}

			tx, err := starter.BeginTx(r.Context())
			if err != nil {
				http.Error(w, "failed to start transaction", http.StatusInternalServerError)
				return
			}

			tc := resolver.NewTxContext(tx)
			ctx := resolver.WithTxContext(r.Context(), tc)

			buf := newBufferedResponse()
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						tc.MarkError()
						_ = tc.Finalize()
						panic(rec)
					}
				}()
				next.ServeHTTP(buf, r.WithContext(ctx))
			}()

			if err := tc.Finalize(); err != nil {
				reqLogger := logging.FromContext(r.Context())
				if tc.HasError() {
					// The buffered response already reports the mutation
					// failure; a rollback failure on top only gets logged.
					reqLogger.Error("transaction rollback failed", slog.String("error", err.Error()))
				} else {
					reqLogger.Error("transaction commit failed", slog.String("error", err.Error()))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"errors":[{"message":"transaction commit failed"}]}`))
					return
				}
			}

			buf.flushTo(w)
		})
	}
}

// bufferedResponse holds a handler's full response until the caller decides
// to send it.
type bufferedResponse struct {
	header     http.Header
	statusCode int
	written    bool
	body       bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header), statusCode: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(statusCode int) {
	if !b.written {
		b.statusCode = statusCode
		b.written = true
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if !b.written {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) flushTo(w http.ResponseWriter) {
	for key, values := range b.header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(b.body.Bytes())
}

// MetricsMiddleware wraps a GraphQL handler and records request metrics.
func MetricsMiddleware(metrics *observability.QueryMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for non-POST requests (GraphiQL page loads, etc.)
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ctx := observability.ContextWithQueryMetrics(r.Context(), metrics)
			r = r.WithContext(ctx)

			metrics.IncrementActiveRequests(ctx)
			defer metrics.DecrementActiveRequests(ctx)

			start := time.Now()

			operationType := "unknown"
			query, operationName := extractGraphQLRequest(r)
			if opType, ok := resolveOperationType(query, operationName); ok && strings.TrimSpace(opType) != "" {
				operationType = opType
			}

			wrapped := &metricsResponseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			hasErrors := wrapped.statusCode >= 400 || responseHasGraphQLErrors(wrapped.body.Bytes())
			metrics.RecordRequest(ctx, duration, hasErrors, operationType)
		})
	}
}

// metricsResponseWriter wraps http.ResponseWriter and buffers the body so the
// middleware can inspect the GraphQL error list after the handler ran.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	body       bytes.Buffer
}

func (w *metricsResponseWriter) WriteHeader(statusCode int) {
	if !w.written {
		w.statusCode = statusCode
		w.written = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	if len(b) > 0 {
		_, _ = w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func responseHasGraphQLErrors(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}

	var payload struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return false
	}
	if len(payload.Errors) == 0 {
		return false
	}

	errorsValue := bytes.TrimSpace(payload.Errors)
	if len(errorsValue) == 0 || bytes.Equal(errorsValue, []byte("null")) {
		return false
	}

	var errorsList []json.RawMessage
	if err := json.Unmarshal(errorsValue, &errorsList); err != nil {
		return false
	}
	return len(errorsList) > 0
}

type graphQLRequest struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName"`
}

func extractGraphQLRequest(r *http.Request) (string, string) {
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("query"), r.URL.Query().Get("operationName")
	}

	if r.Method != http.MethodPost {
		return "", ""
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/graphql") {
		return string(body), ""
	}

	var payload graphQLRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", ""
	}

	return payload.Query, payload.OperationName
}

func resolveOperationType(query, operationName string) (string, bool) {
	if query == "" {
		return "", false
	}

	doc, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{
			Body: []byte(query),
			Name: "graphql",
		}),
	})
	if err != nil {
		return "", false
	}

	var first *ast.OperationDefinition
	ops := 0
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		ops++
		if first == nil {
			first = op
		}
		if operationName != "" && op.Name != nil && op.Name.Value == operationName {
			return op.Operation, true
		}
	}

	if operationName != "" {
		return "", false
	}
	if ops == 1 && first != nil {
		return first.Operation, true
	}
	return "", false
}
