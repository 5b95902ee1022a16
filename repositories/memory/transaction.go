package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/upb/lms-backend/repositories"
)

// ErrTransactionDone is returned when a finished transaction is committed again
var ErrTransactionDone = errors.New("transaction already finished")

// TransactionManager provides transactions for the in-memory stores. Writes
// are applied immediately and are not undone by Rollback; only after-commit
// hooks follow the transaction outcome.
type TransactionManager struct{}

// NewTransactionManager creates a transaction manager for in-memory stores
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{}
}

var _ repositories.TransactionManager = (*TransactionManager)(nil)

// Begin starts a transaction
func (TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return &Transaction{ctx: ctx}, nil
}

// InTransaction runs fn and commits when it succeeds
func (m TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, _ := m.Begin(ctx)
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(repositories.ContextWithTransaction(ctx, tx), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Transaction collects after-commit hooks
type Transaction struct {
	ctx   context.Context
	mu    sync.Mutex
	hooks []func(ctx context.Context)
	done  bool
}

// Commit runs the registered hooks in order
func (t *Transaction) Commit() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return ErrTransactionDone
	}
	hooks := t.hooks
	t.hooks = nil
	t.done = true
	t.mu.Unlock()

	for _, hook := range hooks {
		hook(t.ctx)
	}
	return nil
}

// Rollback drops the registered hooks. Rolling back twice is a no-op.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = nil
	t.done = true
	return nil
}

// Context returns the context the transaction was started with
func (t *Transaction) Context() context.Context {
	return t.ctx
}

// AfterCommit registers fn to run after Commit. Hooks registered on a
// finished transaction are dropped.
func (t *Transaction) AfterCommit(fn func(ctx context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.hooks = append(t.hooks, fn)
}
