package services

import (
	"errors"
	"fmt"

	"github.com/upb/lms-backend/repositories"
)

// ErrorType classifies a domain error for the HTTP layer
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
)

// DomainError is a classified error with optional details
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]any
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail returns a copy of the error carrying key=value.
// Package-level sentinels are never mutated.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Type: e.Type, Message: e.Message, Err: e.Err, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]any),
	}
}

var (
	ErrUserNotFound         = NewDomainError(ErrorTypeNotFound, "user not found", nil)
	ErrRoleNotFound         = NewDomainError(ErrorTypeNotFound, "role not found", nil)
	ErrAcademicYearNotFound = NewDomainError(ErrorTypeNotFound, "academic year not found", nil)
	ErrSubjectNotFound      = NewDomainError(ErrorTypeNotFound, "subject not found", nil)
	ErrQuizNotFound         = NewDomainError(ErrorTypeNotFound, "quiz not found", nil)
	ErrAuditEventNotFound   = NewDomainError(ErrorTypeNotFound, "audit event not found", nil)

	ErrInvalidInput     = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInvalidDateRange = NewDomainError(ErrorTypeValidation, "academic year must end after it starts", nil)
	ErrQuizPublished    = NewDomainError(ErrorTypeValidation, "quiz is already published", nil)

	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidToken = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)

	ErrForbidden = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)

	ErrDuplicateEmail       = NewDomainError(ErrorTypeConflict, "email already exists", nil)
	ErrDuplicateSubjectCode = NewDomainError(ErrorTypeConflict, "subject code already exists", nil)
	ErrStillReferenced      = NewDomainError(ErrorTypeConflict, "resource is still referenced", nil)

	ErrInternal          = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrTransactionFailed = NewDomainError(ErrorTypeInternal, "transaction failed", nil)
)

// MapRepositoryError translates repository sentinels into domain errors.
// notFound and conflict are returned (wrapping err) for the matching sentinel;
// anything else becomes an internal error.
func MapRepositoryError(err error, notFound, conflict *DomainError) error {
	var domainErr *DomainError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repositories.ErrNotFound) && notFound != nil:
		return NewDomainError(notFound.Type, notFound.Message, err)
	case errors.Is(err, repositories.ErrConflict) && conflict != nil:
		return NewDomainError(conflict.Type, conflict.Message, err)
	case errors.Is(err, repositories.ErrConflict):
		return NewDomainError(ErrorTypeConflict, "conflicting change", err)
	default:
		return WrapInternal("storage failure", err)
	}
}

// GetErrorType returns the ErrorType of a domain error, or "" otherwise
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details of a domain error, or nil otherwise
func GetErrorDetails(err error) map[string]any {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

func IsNotFoundError(err error) bool     { return GetErrorType(err) == ErrorTypeNotFound }
func IsValidationError(err error) bool   { return GetErrorType(err) == ErrorTypeValidation }
func IsUnauthorizedError(err error) bool { return GetErrorType(err) == ErrorTypeUnauthorized }
func IsForbiddenError(err error) bool    { return GetErrorType(err) == ErrorTypeForbidden }
func IsConflictError(err error) bool     { return GetErrorType(err) == ErrorTypeConflict }
func IsInternalError(err error) bool     { return GetErrorType(err) == ErrorTypeInternal }

// WrapError wraps err with a type and message
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps err as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// Invalid returns a validation error carrying the offending field
func Invalid(field, message string) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, nil).WithDetail("field", field)
}
