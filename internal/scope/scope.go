// Package scope implements the Scope aggregate: a hierarchical work item
// with a title, optional description, typed aspects, and alias references.
// Mutations produce domain events; state is reconstructable by replaying
// them.
package scope

import (
	"strings"
	"time"

	"github.com/kamiazya/scopes/internal/aspect"
	"github.com/kamiazya/scopes/internal/ids"
)

// Limits on scope fields and hierarchy shape.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MaxHierarchyDepth    = 10
	MaxChildrenPerParent = 100
)

// Scope is the aggregate root. Children are not held as fields; they are
// discovered through repository queries, keeping the tree acyclic by
// construction (parent pointers only).
type Scope struct {
	ID          ids.ScopeID
	ParentID    *ids.ScopeID
	Title       string
	Description string
	Aspects     map[aspect.Key][]aspect.Value
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateTitle trims and bounds a title.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", &Error{Code: ErrCodeEmptyTitle, Message: "title must not be empty"}
	}
	if len([]rune(trimmed)) > MaxTitleLength {
		return "", &Error{Code: ErrCodeTitleTooLong, Message: "title exceeds 200 characters"}
	}
	return trimmed, nil
}

// ValidateDescription trims and bounds a description. Blank input collapses
// to the empty string.
func ValidateDescription(description string) (string, error) {
	trimmed := strings.TrimSpace(description)
	if len([]rune(trimmed)) > MaxDescriptionLength {
		return "", &Error{Code: ErrCodeDescriptionTooLong, Message: "description exceeds 1000 characters"}
	}
	return trimmed, nil
}

// New constructs a scope with a validated title and description. Hierarchy
// constraints (depth, sibling count, duplicate titles) are repository-backed
// and enforced by the CreationValidator, not here.
func New(id ids.ScopeID, parentID *ids.ScopeID, title, description string, now time.Time) (*Scope, error) {
	validTitle, err := ValidateTitle(title)
	if err != nil {
		return nil, err
	}
	validDescription, err := ValidateDescription(description)
	if err != nil {
		return nil, err
	}
	return &Scope{
		ID:          id,
		ParentID:    parentID,
		Title:       validTitle,
		Description: validDescription,
		Aspects:     make(map[aspect.Key][]aspect.Value),
		Version:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetAspect replaces the values under key. Values must already satisfy the
// aspect's definition; callers validate through the registry first.
func (s *Scope) SetAspect(key aspect.Key, values []aspect.Value, now time.Time) {
	if s.Aspects == nil {
		s.Aspects = make(map[aspect.Key][]aspect.Value)
	}
	s.Aspects[key] = append([]aspect.Value(nil), values...)
	s.UpdatedAt = now
}

// RemoveAspect drops the values under key.
func (s *Scope) RemoveAspect(key aspect.Key, now time.Time) {
	delete(s.Aspects, key)
	s.UpdatedAt = now
}

// AspectValues returns the values under key, nil when absent.
func (s *Scope) AspectValues(key aspect.Key) []aspect.Value {
	return s.Aspects[key]
}

// clone returns a deep copy used by event application.
func (s *Scope) clone() *Scope {
	out := *s
	if s.ParentID != nil {
		p := *s.ParentID
		out.ParentID = &p
	}
	out.Aspects = make(map[aspect.Key][]aspect.Value, len(s.Aspects))
	for k, v := range s.Aspects {
		out.Aspects[k] = append([]aspect.Value(nil), v...)
	}
	return &out
}
