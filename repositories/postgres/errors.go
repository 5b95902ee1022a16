package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/lms-backend/repositories"
)

// PostgreSQL error codes mapped to repository errors
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

// wrapWriteError translates constraint violations into repositories.ErrConflict
func wrapWriteError(action string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation, pqForeignKeyViolation:
			return fmt.Errorf("failed to %s: %w: %s", action, repositories.ErrConflict, pqErr.Message)
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// wrapReadError translates sql.ErrNoRows into repositories.ErrNotFound
func wrapReadError(what string, id interface{}, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, repositories.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// checkAffected returns repositories.ErrNotFound when a write touched no row
func checkAffected(result sql.Result, what string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", what, id, repositories.ErrNotFound)
	}
	return nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
