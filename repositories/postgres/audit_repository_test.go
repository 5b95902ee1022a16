package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"go.uber.org/zap"
)

func auditRows() *sqlmock.Rows {
	return sqlmock.NewRows(auditColumns)
}

func TestAuditRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())
	createdAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	event := &models.AuditEvent{
		LogName:     "User",
		Description: "Created User",
		SubjectType: models.StringPtr("User"),
		SubjectID:   models.StringPtr("7"),
		Event:       models.EventCreated,
		Properties:  models.Properties{"attributes": map[string]any{"name": "Ann"}},
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_events")).
		WithArgs("User", "Created User", "User", "7", models.EventCreated, nil, nil,
			`{"attributes":{"name":"Ann"}}`, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), createdAt))

	require.NoError(t, repo.Insert(context.Background(), event))
	assert.Equal(t, int64(11), event.ID)
	assert.Equal(t, createdAt, event.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_InsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())

	mock.ExpectQuery("INSERT INTO audit_events").WillReturnError(errors.New("disk full"))

	err := repo.Insert(context.Background(), &models.AuditEvent{LogName: "x", Description: "x", Event: "x"})
	assert.ErrorContains(t, err, "failed to insert audit event")
}

func TestAuditRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events WHERE id = $1")).
			WithArgs(int64(3)).
			WillReturnRows(auditRows().AddRow(int64(3), "User", "Created User", "User", "7", "created",
				"User", "1", []byte(`{"attributes":{"id":7}}`), "5f1d7c1e-8a4c-4d55-9f77-0b8d4a6c2b10", now))

		event, err := repo.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, "Created User", event.Description)
		assert.Equal(t, "7", *event.SubjectID)
		assert.Equal(t, float64(7), event.Attributes()["id"])
		require.NotNil(t, event.BatchUUID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("FROM audit_events").WithArgs(int64(99)).WillReturnRows(auditRows())

		_, err := repo.GetByID(context.Background(), 99)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestAuditRepository_Query(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())
	now := time.Now().UTC()

	filter := models.AuditFilter{SubjectType: models.StringPtr("User"), SubjectID: models.StringPtr("7")}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_events WHERE subject_type = $1 AND subject_id = $2")).
		WithArgs("User", "7").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE subject_type = $1 AND subject_id = $2 ORDER BY created_at ASC, id ASC LIMIT 2 OFFSET 2")).
		WithArgs("User", "7").
		WillReturnRows(auditRows().AddRow(int64(9), "User", "Deleted User", "User", "7", "deleted",
			nil, nil, []byte(`{}`), nil, now))

	page, err := repo.Query(context.Background(), filter, models.PageRequest{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "deleted", page.Items[0].Event)
	assert.Nil(t, page.Items[0].CauserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_QueryWithoutFilter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_events")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events ORDER BY created_at ASC, id ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(auditRows())

	page, err := repo.Query(context.Background(), models.AuditFilter{}, models.PageRequest{Page: 1, Size: 20})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_QueryDateRange(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE created_at >= $1 AND created_at <= $2")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE created_at >= $1 AND created_at <= $2 ORDER BY")).
		WithArgs(from, to).
		WillReturnRows(auditRows())

	_, err := repo.Query(context.Background(), models.AuditFilter{CreatedFrom: &from, CreatedTo: &to}, models.PageRequest{Page: 1, Size: 20})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_Recent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT 10")).
		WillReturnRows(auditRows().
			AddRow(int64(2), "b", "b", nil, nil, "note", nil, nil, []byte(`{}`), nil, now).
			AddRow(int64(1), "a", "a", nil, nil, "note", nil, nil, []byte(`{}`), nil, now))

	events, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
