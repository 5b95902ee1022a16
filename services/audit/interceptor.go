package audit

import (
	"context"
	"reflect"

	"github.com/upb/lms-backend/internal/observability"
	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FeatureFlag reports whether automatic audit logging is on.
// An error means the flag could not be read.
type FeatureFlag interface {
	Enabled(ctx context.Context) (bool, error)
}

// Recorder receives entity lifecycle notifications
type Recorder interface {
	RecordCreate(ctx context.Context, entity any)
	RecordUpdate(ctx context.Context, entity, previous any)
	RecordDelete(ctx context.Context, entity any)
}

// Interceptor turns entity lifecycle notifications into audit events.
//
// Recording never fails the caller. When ctx carries a transaction the
// event is appended after commit and discarded on rollback.
type Interceptor struct {
	svc     *Service
	flag    FeatureFlag
	metrics *observability.AuditMetrics
	logger  *zap.Logger
}

var _ Recorder = (*Interceptor)(nil)

// NewInterceptor creates an interceptor. A nil flag means always enabled.
func NewInterceptor(svc *Service, flag FeatureFlag, logger *zap.Logger) *Interceptor {
	return &Interceptor{
		svc:     svc,
		flag:    flag,
		metrics: svc.metrics,
		logger:  logger,
	}
}

// RecordCreate records a "created" event with the entity's attributes
func (i *Interceptor) RecordCreate(ctx context.Context, entity any) {
	i.record(ctx, models.EventCreated, entity, nil)
}

// RecordUpdate records an "updated" event with the entity's attributes and,
// when previous is given, its attributes before the change under "old"
func (i *Interceptor) RecordUpdate(ctx context.Context, entity, previous any) {
	i.record(ctx, models.EventUpdated, entity, previous)
}

// RecordDelete records a "deleted" event without attributes
func (i *Interceptor) RecordDelete(ctx context.Context, entity any) {
	i.record(ctx, models.EventDeleted, entity, nil)
}

func (i *Interceptor) record(ctx context.Context, kind string, entity, previous any) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("audit interceptor panicked",
				zap.Any("panic", r),
				zap.String("event", kind))
			i.metrics.IncDropped(observability.ReasonPanic)
		}
	}()

	if isNil(entity) {
		return
	}
	switch entity.(type) {
	case models.AuditEvent, *models.AuditEvent:
		i.metrics.IncSkipped(observability.ReasonAuditSubject)
		return
	}
	if !i.enabled(ctx) {
		i.metrics.IncSkipped(observability.ReasonDisabled)
		return
	}

	extractor := i.svc.extractor
	typeName := extractor.TypeName(entity)
	b := i.svc.Log("").
		Event(kind).
		Subject(entity).
		Description(cases.Title(language.English).String(kind) + " " + typeName)

	if kind != models.EventDeleted {
		b.Property("attributes", extractor.Extract(entity))
		if !isNil(previous) {
			b.Property("old", extractor.Extract(previous))
		}
	}

	event, err := b.Build(ctx)
	if err != nil {
		i.logger.Error("failed to build audit event",
			zap.Error(err),
			zap.String("event", kind),
			zap.String("subject_type", typeName))
		i.metrics.IncDropped(observability.ReasonBuildError)
		return
	}

	if tx, ok := repositories.TransactionFromContext(ctx); ok {
		tx.AfterCommit(func(ctx context.Context) {
			i.svc.Append(ctx, event)
		})
		return
	}
	i.svc.Append(ctx, event)
}

// enabled reads the feature flag. An unreadable flag fails open.
func (i *Interceptor) enabled(ctx context.Context) bool {
	if i.flag == nil {
		return true
	}
	on, err := i.flag.Enabled(ctx)
	if err != nil {
		i.logger.Warn("audit feature flag unavailable, recording anyway", zap.Error(err))
		return true
	}
	return on
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
