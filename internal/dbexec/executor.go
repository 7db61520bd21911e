// Package dbexec provides the query execution abstractions the resolver
// layer runs against. Queries run on a Session; mutations run on a
// TxSession so a whole mutation commits or rolls back as one unit.
package dbexec

import (
	"context"
	"database/sql"
)

// Rows abstracts sql.Rows to allow wrapped cleanup behavior.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Session abstracts SQL execution so resolvers never hold a database
// handle directly. Both *sql.DB and *sql.Tx satisfy the underlying calls.
type Session interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TxSession is a Session bound to a transaction.
type TxSession interface {
	Session
	Commit() error
	Rollback() error
}

// TxStarter opens transactions for mutation requests.
type TxStarter interface {
	BeginTx(ctx context.Context) (TxSession, error)
}

// DBSession executes statements directly against a database handle.
type DBSession struct {
	db *sql.DB
}

// NewSession wraps a database handle.
func NewSession(db *sql.DB) *DBSession {
	return &DBSession{db: db}
}

func (s *DBSession) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if s.db == nil {
		return nil, sql.ErrConnDone
	}
	return s.db.QueryContext(ctx, query, args...)
}

func (s *DBSession) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.db == nil {
		return nil, sql.ErrConnDone
	}
	return s.db.ExecContext(ctx, query, args...)
}

// BeginTx opens a transaction on the underlying handle.
func (s *DBSession) BeginTx(ctx context.Context) (TxSession, error) {
	if s.db == nil {
		return nil, sql.ErrConnDone
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return NewTxSession(tx), nil
}

// SQLTxSession executes statements inside an open transaction.
type SQLTxSession struct {
	tx *sql.Tx
}

// NewTxSession wraps an open transaction.
func NewTxSession(tx *sql.Tx) *SQLTxSession {
	return &SQLTxSession{tx: tx}
}

func (s *SQLTxSession) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if s.tx == nil {
		return nil, sql.ErrTxDone
	}
	return s.tx.QueryContext(ctx, query, args...)
}

func (s *SQLTxSession) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.tx == nil {
		return nil, sql.ErrTxDone
	}
	return s.tx.ExecContext(ctx, query, args...)
}

func (s *SQLTxSession) Commit() error {
	if s.tx == nil {
		return sql.ErrTxDone
	}
	return s.tx.Commit()
}

func (s *SQLTxSession) Rollback() error {
	if s.tx == nil {
		return sql.ErrTxDone
	}
	return s.tx.Rollback()
}
