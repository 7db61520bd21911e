package resolver

import (
	"context"
	"sync"

	"modelql/internal/dbexec"
)

type sessionContextKey struct{}
type txContextKey struct{}

// WithSession attaches the read session resolvers run queries on.
func WithSession(ctx context.Context, sess dbexec.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFrom returns the request's read session.
func SessionFrom(ctx context.Context) (dbexec.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(dbexec.Session)
	return sess, ok
}

// TxContext holds the shared transaction of one mutation request. Every
// mutation field in the request runs on the same transaction, and the
// request middleware finalizes it exactly once.
type TxContext struct {
	tx        dbexec.TxSession
	hasError  bool
	finalized bool
	mu        sync.Mutex
}

// NewTxContext wraps an open transaction.
func NewTxContext(tx dbexec.TxSession) *TxContext {
	return &TxContext{tx: tx}
}

// Tx returns the shared transaction.
func (tc *TxContext) Tx() dbexec.TxSession {
	return tc.tx
}

// MarkError records that a mutation field failed, forcing a rollback.
func (tc *TxContext) MarkError() {
	tc.mu.Lock()
	tc.hasError = true
	tc.mu.Unlock()
}

// HasError reports whether any mutation field marked the transaction as
// failed.
func (tc *TxContext) HasError() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.hasError
}

// Finalize commits or rolls back depending on the error state. The lock is
// held across the whole operation so MarkError cannot race the commit.
func (tc *TxContext) Finalize() error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.finalized {
		return nil
	}
	tc.finalized = true

	if tc.hasError {
		return tc.tx.Rollback()
	}
	return tc.tx.Commit()
}

// WithTxContext attaches a mutation transaction context.
func WithTxContext(ctx context.Context, tc *TxContext) context.Context {
	return context.WithValue(ctx, txContextKey{}, tc)
}

// TxContextFrom returns the request's mutation transaction context.
func TxContextFrom(ctx context.Context) (*TxContext, bool) {
	tc, ok := ctx.Value(txContextKey{}).(*TxContext)
	return tc, ok
}
