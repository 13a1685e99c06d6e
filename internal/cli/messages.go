package cli

import (
	"github.com/kamiazya/scopes/internal/alias"
	"github.com/kamiazya/scopes/internal/aspect"
	"github.com/kamiazya/scopes/internal/contextview"
	"github.com/kamiazya/scopes/internal/filter"
	"github.com/kamiazya/scopes/internal/scope"
	"github.com/kamiazya/scopes/internal/store"
	syncpkg "github.com/kamiazya/scopes/internal/sync"
)

// Message maps structured domain errors to the wording shown to users.
// The core only ever surfaces typed errors; this is the one place they
// become prose.
func Message(err error) string {
	if err == nil {
		return ""
	}

	switch scope.CodeOf(err) {
	case scope.ErrCodeDuplicateTitle:
		return "a scope with this title already exists under the same parent"
	case scope.ErrCodeMaxDepthExceeded:
		return "this would nest scopes deeper than the hierarchy allows"
	case scope.ErrCodeMaxChildrenExceeded:
		return "this parent already has the maximum number of children"
	case scope.ErrCodeSelfParenting:
		return "a scope cannot be its own parent"
	case scope.ErrCodeCircularReference, scope.ErrCodeCircularPath:
		return "this move would create a cycle in the hierarchy"
	case scope.ErrCodeParentNotFound:
		return "the parent scope does not exist"
	case scope.ErrCodeNotFound:
		return "the scope does not exist"
	case scope.ErrCodeHasChildren:
		return "the scope still has children; delete or move them first"
	}

	switch alias.CodeOf(err) {
	case alias.ErrCodeDuplicateAlias:
		return "that alias is already in use by another scope"
	case alias.ErrCodeCannotRemoveCanonical:
		return "the canonical alias cannot be removed, only replaced"
	case alias.ErrCodeNotFound:
		return "no such alias"
	case alias.ErrCodeAmbiguousPrefix:
		return "that prefix matches more than one alias"
	case alias.ErrCodeGenerationFailed:
		return "could not generate a unique alias; try again"
	}

	switch filter.CodeOf(err) {
	case filter.ErrCodeEmptyExpression:
		return "the filter expression is empty"
	case filter.ErrCodeUnterminatedString,
		filter.ErrCodeUnexpectedCharacter,
		filter.ErrCodeUnexpectedToken,
		filter.ErrCodeInvalidSyntax:
		return "the filter expression is invalid: " + err.Error()
	}

	switch contextview.CodeOf(err) {
	case contextview.ErrCodeNotFound:
		return "no context with that name"
	case contextview.ErrCodeNoActiveContext:
		return "no context is active"
	}

	switch syncpkg.CodeOf(err) {
	case syncpkg.ErrCodeStateViolation:
		return "a sync round is already running for this device"
	case syncpkg.ErrCodeNetwork:
		return "could not reach the remote device"
	case syncpkg.ErrCodeInvalidDevice:
		return "unknown device"
	}

	switch store.CodeOf(err) {
	case store.ErrCodeConnection:
		return "could not open the database"
	case store.ErrCodeTimeout:
		return "the database is busy; try again"
	}

	// Aspect errors and everything else carry their own useful text.
	if aspect.CodeOf(err) != "" {
		return err.Error()
	}
	return err.Error()
}
