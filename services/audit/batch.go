package audit

import (
	"context"

	"github.com/google/uuid"
)

type batchContextKey struct{}

// StartBatch returns a context carrying a new batch correlation id.
// An enclosing batch is shadowed in the returned context only.
func StartBatch(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(ctx, batchContextKey{}, id), id
}

// EndBatch returns a context without an active batch
func EndBatch(ctx context.Context) context.Context {
	if _, ok := BatchIDFromContext(ctx); !ok {
		return ctx
	}
	return context.WithValue(ctx, batchContextKey{}, "")
}

// BatchIDFromContext returns the active batch correlation id, if any
func BatchIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(batchContextKey{}).(string)
	return id, ok && id != ""
}

// WithBatch runs fn with a batch-bound context. Inside an active batch fn
// joins it, so one logical operation carries one id. The caller's context
// is never modified.
func WithBatch(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := BatchIDFromContext(ctx); ok {
		return fn(ctx)
	}
	batchCtx, _ := StartBatch(ctx)
	return fn(batchCtx)
}

// WithBatchResult is WithBatch for functions that return a value
func WithBatchResult[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := WithBatch(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}
