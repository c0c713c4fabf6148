package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Transactor runs fn inside a database transaction carried by the context.
// Repositories called with that context join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// TxManager implements Transactor on a pgx pool.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a transaction manager for pool.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

var _ Transactor = (*TxManager)(nil)

// WithinTx begins a transaction, stores it on the context and commits when fn
// returns nil. A context that already carries a transaction is reused, so
// nested calls commit or roll back with the outermost one.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	txCtx, scope := BeginCommitScope(context.WithValue(ctx, txKey{}, tx))
	if err := fn(txCtx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	scope.Run(ctx)
	return nil
}

// Conn returns the transaction on ctx, or pool when there is none.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(pgx.Tx)
	return ok
}

type scopeKey struct{}

// CommitScope collects callbacks that must only run once the surrounding
// transaction has committed.
type CommitScope struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

// BeginCommitScope attaches a new CommitScope to ctx.
func BeginCommitScope(ctx context.Context) (context.Context, *CommitScope) {
	scope := &CommitScope{}
	return context.WithValue(ctx, scopeKey{}, scope), scope
}

// Run executes the collected callbacks in registration order.
func (s *CommitScope) Run(ctx context.Context) {
	s.mu.Lock()
	fns := s.fns
	s.fns = nil
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}

// AfterCommit defers fn until the transaction on ctx commits. Outside a
// transaction fn runs immediately. Callbacks of a rolled back transaction are dropped.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if scope, ok := ctx.Value(scopeKey{}).(*CommitScope); ok {
		scope.mu.Lock()
		scope.fns = append(scope.fns, fn)
		scope.mu.Unlock()
		return
	}
	fn(ctx)
}
