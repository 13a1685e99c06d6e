package scope

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes scope and hierarchy failures.
type ErrorCode string

const (
	// ErrCodeEmptyTitle indicates a blank title.
	ErrCodeEmptyTitle ErrorCode = "EMPTY_TITLE"

	// ErrCodeTitleTooLong indicates a title over 200 characters.
	ErrCodeTitleTooLong ErrorCode = "TITLE_TOO_LONG"

	// ErrCodeDescriptionTooLong indicates a description over 1000 characters.
	ErrCodeDescriptionTooLong ErrorCode = "DESCRIPTION_TOO_LONG"

	// ErrCodeDuplicateTitle indicates a sibling with the same normalized
	// title.
	ErrCodeDuplicateTitle ErrorCode = "DUPLICATE_TITLE"

	// ErrCodeMaxDepthExceeded indicates the hierarchy depth limit was hit.
	ErrCodeMaxDepthExceeded ErrorCode = "MAX_DEPTH_EXCEEDED"

	// ErrCodeMaxChildrenExceeded indicates the sibling limit was hit.
	ErrCodeMaxChildrenExceeded ErrorCode = "MAX_CHILDREN_EXCEEDED"

	// ErrCodeSelfParenting indicates a scope set as its own parent.
	ErrCodeSelfParenting ErrorCode = "SELF_PARENTING"

	// ErrCodeCircularReference indicates a parent change that would close a
	// cycle.
	ErrCodeCircularReference ErrorCode = "CIRCULAR_REFERENCE"

	// ErrCodeCircularPath indicates a repeated ID on an ancestor path.
	ErrCodeCircularPath ErrorCode = "CIRCULAR_PATH"

	// ErrCodeParentNotFound indicates the referenced parent does not exist.
	ErrCodeParentNotFound ErrorCode = "PARENT_NOT_FOUND"

	// ErrCodeNotFound indicates the scope does not exist.
	ErrCodeNotFound ErrorCode = "SCOPE_NOT_FOUND"

	// ErrCodeHasChildren indicates deletion of a scope that still has
	// children.
	ErrCodeHasChildren ErrorCode = "HAS_CHILDREN"

	// ErrCodeVersionGap indicates an event applied out of sequence.
	ErrCodeVersionGap ErrorCode = "VERSION_GAP"
)

// Error is the typed failure for scope operations. Details carry structured
// context such as limits and offending identifiers.
type Error struct {
	Code    ErrorCode
	Message string
	ScopeID string
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ScopeID != "" {
		return fmt.Sprintf("%s: %s (scope=%s)", e.Code, e.Message, e.ScopeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from err, or "" when err is not a scope
// Error.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// ValidationErrors accumulates every failure found while validating a scope
// creation, so a caller can surface them all at once. It implements error;
// First returns the fail-fast view.
type ValidationErrors struct {
	Errors []error
}

// Add appends an error when non-nil.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// HasErrors reports whether any failure was recorded.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// First returns the first recorded failure, nil when none.
func (v *ValidationErrors) First() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}

// Error joins all recorded failures.
func (v *ValidationErrors) Error() string {
	msgs := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
