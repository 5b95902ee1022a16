package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"go.uber.org/zap"
)

var auditColumns = []string{
	"id", "log_name", "description", "subject_type", "subject_id", "event",
	"causer_type", "causer_id", "properties", "batch_uuid", "created_at",
}

// AuditRepository implements the repositories.AuditRepository interface.
// It always writes through its own pool: an audit row must never join,
// or abort, the business transaction carried by the context.
type AuditRepository struct {
	db      *DB
	builder squirrel.StatementBuilderType
	logger  *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger:  logger,
	}
}

// Insert appends an audit event and fills in its ID and CreatedAt
func (r *AuditRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	query, args, err := r.builder.
		Insert("audit_events").
		Columns("log_name", "description", "subject_type", "subject_id", "event",
			"causer_type", "causer_id", "properties", "batch_uuid").
		Values(event.LogName, event.Description, event.SubjectType, event.SubjectID, event.Event,
			event.CauserType, event.CauserID, event.Properties, event.BatchUUID).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build audit insert: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&event.ID, &event.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	r.logger.Debug("audit event inserted", zap.Int64("id", event.ID), zap.String("event", event.Event))
	return nil
}

// GetByID retrieves an audit event by ID
func (r *AuditRepository) GetByID(ctx context.Context, id int64) (*models.AuditEvent, error) {
	query, args, err := r.builder.
		Select(auditColumns...).
		From("audit_events").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit query: %w", err)
	}

	event, err := scanAuditEvent(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("audit event %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get audit event: %w", err)
	}
	return event, nil
}

// Query retrieves one page of events matching every set filter, oldest first
func (r *AuditRepository) Query(ctx context.Context, filter models.AuditFilter, page models.PageRequest) (*models.AuditPage, error) {
	countQuery, countArgs, err := applyAuditFilter(r.builder.Select("COUNT(*)").From("audit_events"), filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit count: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count audit events: %w", err)
	}

	query, args, err := applyAuditFilter(r.builder.Select(auditColumns...).From("audit_events"), filter).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit query: %w", err)
	}

	events, err := r.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return models.NewAuditPage(events, page, total), nil
}

// Recent retrieves the newest events, newest first
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	query, args, err := r.builder.
		Select(auditColumns...).
		From("audit_events").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit query: %w", err)
	}
	return r.queryEvents(ctx, query, args...)
}

func (r *AuditRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*models.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := []*models.AuditEvent{}
	for rows.Next() {
		event, err := scanAuditEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}

func applyAuditFilter(b squirrel.SelectBuilder, f models.AuditFilter) squirrel.SelectBuilder {
	if f.LogName != nil {
		b = b.Where(squirrel.Eq{"log_name": *f.LogName})
	}
	if f.Event != nil {
		b = b.Where(squirrel.Eq{"event": *f.Event})
	}
	if f.SubjectType != nil {
		b = b.Where(squirrel.Eq{"subject_type": *f.SubjectType})
	}
	if f.SubjectID != nil {
		b = b.Where(squirrel.Eq{"subject_id": *f.SubjectID})
	}
	if f.CauserID != nil {
		b = b.Where(squirrel.Eq{"causer_id": *f.CauserID})
	}
	if f.CreatedFrom != nil {
		b = b.Where(squirrel.GtOrEq{"created_at": *f.CreatedFrom})
	}
	if f.CreatedTo != nil {
		b = b.Where(squirrel.LtOrEq{"created_at": *f.CreatedTo})
	}
	return b
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuditEvent(row rowScanner) (*models.AuditEvent, error) {
	event := &models.AuditEvent{}
	err := row.Scan(
		&event.ID,
		&event.LogName,
		&event.Description,
		&event.SubjectType,
		&event.SubjectID,
		&event.Event,
		&event.CauserType,
		&event.CauserID,
		&event.Properties,
		&event.BatchUUID,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}
