package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/lms-backend/internal/observability"
	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"github.com/upb/lms-backend/repositories/memory"
	"go.uber.org/zap"
)

func newTestInterceptor(flag FeatureFlag) (*Interceptor, *Service, *memory.AuditRepository) {
	store := memory.NewAuditRepository()
	svc, _ := newTestService(store, staticActor("1"))
	return NewInterceptor(svc, flag, zap.NewNop()), svc, store
}

func allEvents(t *testing.T, svc *Service) []*models.AuditEvent {
	t.Helper()
	return svc.Query(context.Background(), models.AuditFilter{}, models.PageRequest{Page: 1, Size: 100}).Items
}

func TestRecordCreate_UserScenario(t *testing.T) {
	interceptor, svc, _ := newTestInterceptor(nil)

	interceptor.RecordCreate(context.Background(), &models.User{ID: 7, Name: "Ann"})

	events := allEvents(t, svc)
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, models.EventCreated, e.Event)
	assert.Equal(t, "Created User", e.Description)
	assert.Equal(t, "User", *e.SubjectType)
	assert.Equal(t, "7", *e.SubjectID)
	assert.Equal(t, "1", *e.CauserID)

	attrs := e.Attributes()
	assert.Equal(t, float64(7), attrs["id"])
	assert.Equal(t, "Ann", attrs["name"])
	assert.Contains(t, attrs, "role_id")
	assert.Nil(t, attrs["role_id"])
	assert.NotContains(t, attrs, "subjects")
	assert.NotContains(t, attrs, "password_hash")
}

func TestRecordUpdate_IncludesPreviousAttributes(t *testing.T) {
	interceptor, svc, _ := newTestInterceptor(nil)

	interceptor.RecordUpdate(context.Background(),
		&models.Quiz{ID: 3, Title: "Limits II", Subject: &models.Subject{ID: 12}},
		&models.Quiz{ID: 3, Title: "Limits", Subject: &models.Subject{ID: 12}})

	events := allEvents(t, svc)
	require.Len(t, events, 1)
	assert.Equal(t, "Updated Quiz", events[0].Description)
	assert.Equal(t, "Limits II", events[0].Attributes()["title"])
	assert.Equal(t, float64(12), events[0].Attributes()["subject_id"])

	old, ok := events[0].Properties["old"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Limits", old["title"])
}

func TestRecordDelete_HasNoAttributes(t *testing.T) {
	interceptor, svc, _ := newTestInterceptor(nil)

	interceptor.RecordDelete(context.Background(), &models.Subject{ID: 12, Quizzes: []models.Quiz{{ID: 1}}})

	events := allEvents(t, svc)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventDeleted, events[0].Event)
	assert.Equal(t, "Deleted Subject", events[0].Description)
	assert.NotContains(t, events[0].Properties, "attributes")
}

func TestRecord_FeatureFlag(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled suppresses automatic events only", func(t *testing.T) {
		interceptor, svc, store := newTestInterceptor(staticFlag{on: false})

		interceptor.RecordCreate(ctx, &models.User{ID: 7})
		assert.Zero(t, store.Len())
		assert.Equal(t, float64(1), testutil.ToFloat64(svc.metrics.Skipped.WithLabelValues(observability.ReasonDisabled)))

		require.NotNil(t, svc.Log("manual").Commit(ctx))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("unreadable flag fails open", func(t *testing.T) {
		interceptor, _, store := newTestInterceptor(staticFlag{err: errors.New("bad value")})

		interceptor.RecordCreate(ctx, &models.User{ID: 7})
		assert.Equal(t, 1, store.Len())
	})

	t.Run("enabled", func(t *testing.T) {
		interceptor, _, store := newTestInterceptor(staticFlag{on: true})

		interceptor.RecordDelete(ctx, &models.User{ID: 7})
		assert.Equal(t, 1, store.Len())
	})
}

func TestRecord_SkipsAuditEvents(t *testing.T) {
	interceptor, _, store := newTestInterceptor(nil)

	interceptor.RecordCreate(context.Background(), &models.AuditEvent{ID: 1})
	interceptor.RecordCreate(context.Background(), models.AuditEvent{ID: 2})

	assert.Zero(t, store.Len())
}

func TestRecord_IgnoresNilEntities(t *testing.T) {
	interceptor, _, store := newTestInterceptor(nil)

	interceptor.RecordCreate(context.Background(), nil)
	interceptor.RecordUpdate(context.Background(), (*models.User)(nil), nil)

	assert.Zero(t, store.Len())
}

func TestRecord_StoreFailureNeverEscapes(t *testing.T) {
	repo := new(MockAuditRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Panic("driver bug")
	svc, _ := newTestService(repo, nil)
	interceptor := NewInterceptor(svc, nil, zap.NewNop())

	assert.NotPanics(t, func() {
		interceptor.RecordCreate(context.Background(), &models.User{ID: 7})
	})
}

func TestRecord_FlagPanicNeverEscapes(t *testing.T) {
	interceptor, _, store := newTestInterceptor(panickyFlag{})

	assert.NotPanics(t, func() {
		interceptor.RecordCreate(context.Background(), &models.User{ID: 7})
	})
	assert.Zero(t, store.Len())
}

type panickyFlag struct{}

func (panickyFlag) Enabled(context.Context) (bool, error) { panic("config backend down") }

func TestRecord_DeferredUntilCommit(t *testing.T) {
	t.Run("commit appends", func(t *testing.T) {
		interceptor, _, store := newTestInterceptor(nil)
		tx := &fakeTransaction{ctx: context.Background()}
		ctx := repositories.ContextWithTransaction(context.Background(), tx)

		interceptor.RecordCreate(ctx, &models.User{ID: 7})
		interceptor.RecordCreate(ctx, &models.User{ID: 8})
		assert.Zero(t, store.Len(), "nothing is written before commit")

		require.NoError(t, tx.Commit())
		assert.Equal(t, 2, store.Len())
	})

	t.Run("rollback discards", func(t *testing.T) {
		interceptor, _, store := newTestInterceptor(nil)
		tx := &fakeTransaction{ctx: context.Background()}
		ctx := repositories.ContextWithTransaction(context.Background(), tx)

		interceptor.RecordCreate(ctx, &models.User{ID: 7})
		require.NoError(t, tx.Rollback())
		require.NoError(t, tx.Commit())

		assert.Zero(t, store.Len())
	})

	t.Run("batch and causer are captured at record time", func(t *testing.T) {
		interceptor, svc, _ := newTestInterceptor(nil)
		tx := &fakeTransaction{ctx: context.Background()}

		var batchID string
		_ = WithBatch(context.Background(), func(ctx context.Context) error {
			batchID, _ = BatchIDFromContext(ctx)
			interceptor.RecordCreate(repositories.ContextWithTransaction(ctx, tx), &models.User{ID: 7})
			return nil
		})
		require.NoError(t, tx.Commit())

		events := allEvents(t, svc)
		require.Len(t, events, 1)
		require.NotNil(t, events[0].BatchUUID)
		assert.Equal(t, batchID, *events[0].BatchUUID)
		assert.Equal(t, "1", *events[0].CauserID)
	})
}
