// Package alias manages the human-readable names attached to scopes: one
// canonical alias per scope plus any number of custom aliases, globally
// unique, with deterministic generation from alias IDs.
package alias

import (
	"regexp"
	"strings"
	"time"

	"github.com/kamiazya/scopes/internal/ids"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,63}$`)

// Name is a validated alias name: lowercase, 2–64 characters, starting with
// a letter. Input is lowercased at construction.
type Name string

// NewName trims, lowercases, and validates s.
func NewName(s string) (Name, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if !namePattern.MatchString(normalized) {
		return "", &Error{
			Code:    ErrCodeInvalidName,
			Message: "alias must be 2-64 lowercase characters, starting with a letter ([a-z][a-z0-9_-]+)",
			Name:    s,
		}
	}
	return Name(normalized), nil
}

// String returns the alias text.
func (n Name) String() string { return string(n) }

// Type distinguishes the scope's primary alias from additional ones.
type Type string

const (
	// TypeCanonical marks the scope's primary alias. Exactly one per
	// scope; replaced, never removed.
	TypeCanonical Type = "CANONICAL"

	// TypeCustom marks a user-added alias.
	TypeCustom Type = "CUSTOM"
)

// ValidTransition reports whether an alias record may move from one type to
// another. from is nil for a new record. Demoting canonical to custom
// directly is forbidden; it happens implicitly when a new canonical
// replaces it.
func ValidTransition(from *Type, to Type) bool {
	if from == nil {
		return true
	}
	if *from == to {
		return true
	}
	return *from == TypeCustom && to == TypeCanonical
}

// Record is one alias row. Aliases are owned by the registry and reference
// their scope by ID.
type Record struct {
	ID        ids.AliasID
	ScopeID   ids.ScopeID
	Name      Name
	Type      Type
	CreatedAt time.Time
	UpdatedAt time.Time
}
