package audit

import (
	"context"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
)

// Tracked wraps an entity repository and reports every successful mutation
// to a Recorder. Failed mutations are never recorded.
type Tracked[E models.Entity] struct {
	inner    repositories.EntityRepository[E]
	recorder Recorder
}

// NewTracked wraps inner so its writes are audited through recorder
func NewTracked[E models.Entity](inner repositories.EntityRepository[E], recorder Recorder) *Tracked[E] {
	return &Tracked[E]{inner: inner, recorder: recorder}
}

var _ repositories.EntityRepository[*models.User] = (*Tracked[*models.User])(nil)

// Create inserts the entity and records a created event
func (t *Tracked[E]) Create(ctx context.Context, entity E) error {
	if err := t.inner.Create(ctx, entity); err != nil {
		return err
	}
	t.recorder.RecordCreate(ctx, entity)
	return nil
}

// GetByID passes through to the wrapped repository
func (t *Tracked[E]) GetByID(ctx context.Context, id int64) (E, error) {
	return t.inner.GetByID(ctx, id)
}

// List passes through to the wrapped repository
func (t *Tracked[E]) List(ctx context.Context, limit, offset int) ([]E, error) {
	return t.inner.List(ctx, limit, offset)
}

// Update stores the entity and records an updated event. The stored row is
// read first so the event can carry the previous attributes.
func (t *Tracked[E]) Update(ctx context.Context, entity E) error {
	var previous any
	if old, err := t.inner.GetByID(ctx, entity.EntityID()); err == nil {
		previous = old
	}

	if err := t.inner.Update(ctx, entity); err != nil {
		return err
	}
	t.recorder.RecordUpdate(ctx, entity, previous)
	return nil
}

// Delete removes the entity and records a deleted event
func (t *Tracked[E]) Delete(ctx context.Context, id int64) error {
	entity, err := t.inner.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := t.inner.Delete(ctx, id); err != nil {
		return err
	}
	t.recorder.RecordDelete(ctx, entity)
	return nil
}
