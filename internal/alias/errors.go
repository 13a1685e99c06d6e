package alias

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes alias failures.
type ErrorCode string

const (
	// ErrCodeInvalidName indicates a name violating the alias pattern.
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"

	// ErrCodeDuplicateAlias indicates a name already held by another scope.
	ErrCodeDuplicateAlias ErrorCode = "DUPLICATE_ALIAS"

	// ErrCodeNotFound indicates the alias does not exist.
	ErrCodeNotFound ErrorCode = "ALIAS_NOT_FOUND"

	// ErrCodeCannotRemoveCanonical indicates direct removal of a canonical
	// alias; canonical aliases are only replaced.
	ErrCodeCannotRemoveCanonical ErrorCode = "CANNOT_REMOVE_CANONICAL"

	// ErrCodeInvalidTransition indicates a forbidden alias-type change.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// ErrCodeGenerationFailed indicates the bounded-retry name generator
	// ran out of attempts.
	ErrCodeGenerationFailed ErrorCode = "GENERATION_FAILED"

	// ErrCodeAmbiguousPrefix indicates a prefix matching several aliases.
	ErrCodeAmbiguousPrefix ErrorCode = "AMBIGUOUS_PREFIX"
)

// Error is the typed failure for alias operations. ExistingScope and
// AttemptedScope carry the colliding scope IDs on duplicate-name failures.
type Error struct {
	Code           ErrorCode
	Message        string
	Name           string
	ExistingScope  string
	AttemptedScope string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (alias=%s)", e.Code, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from err, or "" when err is not an alias
// Error.
func CodeOf(err error) ErrorCode {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
