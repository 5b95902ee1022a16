package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/upb/lms-backend/repositories"
	"go.uber.org/zap"
)

// TransactionManager implements the repositories.TransactionManager interface
type TransactionManager struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TransactionManager{
		db:     db,
		logger: logger,
	}
}

// Begin starts a new transaction
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	tm.logger.Debug("transaction started")

	return &Transaction{
		tx:     sqlTx,
		ctx:    ctx,
		logger: tm.logger,
	}, nil
}

// InTransaction executes a function within a transaction.
// Commits if fn succeeds, rolls back on error or panic.
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) (err error) {
	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(repositories.ContextWithTransaction(ctx, tx), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			tm.logger.Error("failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("original_error", err),
			)
		}
		return err
	}

	return tx.Commit()
}

// Transaction implements the repositories.Transaction interface
type Transaction struct {
	tx     *sql.Tx
	ctx    context.Context
	logger *zap.Logger

	mu    sync.Mutex
	hooks []func(ctx context.Context)
	done  bool
}

// Commit commits the transaction and runs the after-commit hooks in order
func (t *Transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		t.discardHooks()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.logger.Debug("transaction committed")

	t.mu.Lock()
	hooks := t.hooks
	t.hooks = nil
	t.done = true
	t.mu.Unlock()

	for _, hook := range hooks {
		t.runHook(hook)
	}
	return nil
}

// Rollback rolls back the transaction and drops pending hooks
func (t *Transaction) Rollback() error {
	t.discardHooks()
	if err := t.tx.Rollback(); err != nil {
		// Ignore error if transaction is already closed
		if errors.Is(err, sql.ErrTxDone) {
			return nil
		}
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.logger.Debug("transaction rolled back")
	return nil
}

// Context returns the context the transaction was started with
func (t *Transaction) Context() context.Context {
	return t.ctx
}

// AfterCommit registers fn to run after a successful commit.
// Hooks registered once the transaction has finished are ignored.
func (t *Transaction) AfterCommit(fn func(ctx context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		t.logger.Warn("after-commit hook registered on a finished transaction")
		return
	}
	t.hooks = append(t.hooks, fn)
}

// GetTx returns the underlying sql.Tx for use by repositories
func (t *Transaction) GetTx() *sql.Tx {
	return t.tx
}

func (t *Transaction) discardHooks() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.hooks); n > 0 {
		t.logger.Debug("discarding after-commit hooks", zap.Int("count", n))
	}
	t.hooks = nil
	t.done = true
}

func (t *Transaction) runHook(hook func(ctx context.Context)) {
	defer func() {
		if p := recover(); p != nil {
			t.logger.Error("after-commit hook panicked", zap.Any("panic", p))
		}
	}()
	hook(t.ctx)
}

// Executor is an interface that can execute queries (both *sql.DB and *sql.Tx)
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// GetExecutor returns the transaction carried by ctx when it belongs to this
// package, otherwise the connection pool.
func GetExecutor(ctx context.Context, db *DB) Executor {
	if tx, ok := repositories.TransactionFromContext(ctx); ok {
		if pgTx, ok := tx.(*Transaction); ok {
			return pgTx.tx
		}
	}
	return db.DB
}
