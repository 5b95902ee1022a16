package audit

import (
	"context"

	"github.com/upb/lms-backend/models"
)

// ActorResolver resolves the principal credited with an event
type ActorResolver interface {
	CurrentCauser(ctx context.Context) (*models.Causer, bool)
}

// ActorResolverFunc adapts a function to ActorResolver
type ActorResolverFunc func(ctx context.Context) (*models.Causer, bool)

// CurrentCauser implements ActorResolver
func (f ActorResolverFunc) CurrentCauser(ctx context.Context) (*models.Causer, bool) {
	return f(ctx)
}

// NoActor never resolves a causer. Used by background jobs and tests.
var NoActor ActorResolver = ActorResolverFunc(func(context.Context) (*models.Causer, bool) {
	return nil, false
})
