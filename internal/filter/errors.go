package filter

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes filter-expression failures.
type ErrorCode string

const (
	// ErrCodeEmptyExpression indicates a blank expression.
	ErrCodeEmptyExpression ErrorCode = "EMPTY_EXPRESSION"

	// ErrCodeUnterminatedString indicates a string literal with no closing
	// quote.
	ErrCodeUnterminatedString ErrorCode = "UNTERMINATED_STRING"

	// ErrCodeUnexpectedCharacter indicates a character outside the grammar.
	ErrCodeUnexpectedCharacter ErrorCode = "UNEXPECTED_CHARACTER"

	// ErrCodeUnexpectedToken indicates a token in an illegal position.
	ErrCodeUnexpectedToken ErrorCode = "UNEXPECTED_TOKEN"

	// ErrCodeInvalidSyntax indicates a structurally invalid expression.
	ErrCodeInvalidSyntax ErrorCode = "INVALID_SYNTAX"
)

// ParseError is the typed failure returned by Tokenize and Parse.
// Pos is a zero-based byte offset into the source expression.
type ParseError struct {
	Code    ErrorCode
	Message string
	Pos     int
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Code == ErrCodeEmptyExpression {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (pos=%d)", e.Code, e.Message, e.Pos)
}

// CodeOf extracts the ErrorCode from err, or "" when err is not a ParseError.
func CodeOf(err error) ErrorCode {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
