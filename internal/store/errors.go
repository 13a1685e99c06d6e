package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes repository failures.
type ErrorCode string

const (
	// ErrCodeConnection indicates the database could not be reached or
	// opened.
	ErrCodeConnection ErrorCode = "CONNECTION"

	// ErrCodeDatabase indicates a query or constraint failure.
	ErrCodeDatabase ErrorCode = "DATABASE"

	// ErrCodeTimeout indicates the operation exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeUnknown covers everything else.
	ErrCodeUnknown ErrorCode = "UNKNOWN"
)

// RepositoryError is the typed failure repositories surface to the domain.
type RepositoryError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying driver error.
func (e *RepositoryError) Unwrap() error { return e.Err }

// CodeOf extracts the ErrorCode from err, or "" when err is not a
// RepositoryError.
func CodeOf(err error) ErrorCode {
	var re *RepositoryError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// wrapErr classifies a driver error into the repository taxonomy.
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &RepositoryError{Code: ErrCodeTimeout, Message: op, Err: err}
	case errors.Is(err, sql.ErrConnDone), strings.Contains(err.Error(), "unable to open"):
		return &RepositoryError{Code: ErrCodeConnection, Message: op, Err: err}
	case strings.Contains(err.Error(), "SQLITE_BUSY"), strings.Contains(err.Error(), "database is locked"):
		return &RepositoryError{Code: ErrCodeTimeout, Message: op, Err: err}
	case strings.Contains(err.Error(), "constraint"), strings.Contains(err.Error(), "SQL logic error"):
		return &RepositoryError{Code: ErrCodeDatabase, Message: op, Err: err}
	default:
		return &RepositoryError{Code: ErrCodeUnknown, Message: op, Err: err}
	}
}
