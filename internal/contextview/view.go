// Package contextview implements saved filter views over scopes and the
// process-wide active context: the single view currently narrowing what the
// user sees.
package contextview

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kamiazya/scopes/internal/filter"
)

// ErrorCode categorizes context-view failures.
type ErrorCode string

const (
	// ErrCodeInvalidKey indicates a key that is not a valid slug.
	ErrCodeInvalidKey ErrorCode = "INVALID_KEY"

	// ErrCodeInvalidName indicates a blank view name.
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"

	// ErrCodeNotFound indicates the view does not exist.
	ErrCodeNotFound ErrorCode = "CONTEXT_NOT_FOUND"

	// ErrCodeDuplicate indicates a key or name already in use.
	ErrCodeDuplicate ErrorCode = "DUPLICATE_CONTEXT"

	// ErrCodeNoActiveContext indicates no context is currently active.
	ErrCodeNoActiveContext ErrorCode = "NO_ACTIVE_CONTEXT"
)

// Error is the typed failure for context-view operations.
type Error struct {
	Code    ErrorCode
	Message string
	Key     string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (context=%s)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from err, or "" when err is not a
// contextview Error.
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{0,63}$`)

// Key is a view's stable slug identifier.
type Key string

// NewKey validates and lowercases a view key.
func NewKey(s string) (Key, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if !keyPattern.MatchString(normalized) {
		return "", &Error{
			Code:    ErrCodeInvalidKey,
			Message: "context key must be a slug ([a-z][a-z0-9-]{0,63})",
			Key:     s,
		}
	}
	return Key(normalized), nil
}

// String returns the key text.
func (k Key) String() string { return string(k) }

// View is a named, persisted filter expression. Filter holds the source
// text; it parses under the filter grammar (validated at construction).
type View struct {
	ID        string
	Key       Key
	Name      string
	Filter    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewView validates the key, name, and filter expression and constructs a
// view.
func NewView(key, name, filterSrc string, now time.Time) (*View, error) {
	k, err := NewKey(key)
	if err != nil {
		return nil, err
	}
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return nil, &Error{Code: ErrCodeInvalidName, Message: "context name must not be blank"}
	}
	if _, err := filter.Parse(filterSrc); err != nil {
		return nil, err
	}
	return &View{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Key:       k,
		Name:      trimmedName,
		Filter:    filterSrc,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Expr parses the stored filter source.
func (v *View) Expr() (filter.Expr, error) {
	return filter.Parse(v.Filter)
}

// Repository is the persistence contract for context views.
type Repository interface {
	FindByID(ctx context.Context, id string) (*View, error)
	FindByKey(ctx context.Context, key Key) (*View, error)
	FindByName(ctx context.Context, name string) (*View, error)
	FindAll(ctx context.Context) ([]View, error)
	ExistsByKey(ctx context.Context, key Key) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, v *View) error
	DeleteByID(ctx context.Context, id string) error
}
