package scope

import (
	"context"

	"github.com/kamiazya/scopes/internal/ids"
)

// Repository is the persistence contract the scope service consumes.
// Implementations return store-typed errors (connection, database, timeout).
type Repository interface {
	// FindByID returns the scope, or nil when absent.
	FindByID(ctx context.Context, id ids.ScopeID) (*Scope, error)

	// FindHierarchyDepth returns the number of ancestors above the given
	// scope, zero for a root. The scope's own depth counts itself as well.
	FindHierarchyDepth(ctx context.Context, id ids.ScopeID) (int, error)

	// AncestorPath returns the IDs from the scope up to the root,
	// starting with the scope itself.
	AncestorPath(ctx context.Context, id ids.ScopeID) ([]ids.ScopeID, error)

	// CountByParentID returns the number of direct children. A nil parent
	// counts roots.
	CountByParentID(ctx context.Context, parentID *ids.ScopeID) (int, error)

	// ExistsByParentIDAndTitle reports whether a sibling with the given
	// normalized title exists under parentID (nil for roots).
	ExistsByParentIDAndTitle(ctx context.Context, parentID *ids.ScopeID, normalizedTitle string) (bool, error)

	// ExistsByID reports whether the scope exists.
	ExistsByID(ctx context.Context, id ids.ScopeID) (bool, error)

	// ListByParentID returns the direct children, nil parent for roots.
	ListByParentID(ctx context.Context, parentID *ids.ScopeID) ([]*Scope, error)

	// Save inserts a new scope.
	Save(ctx context.Context, s *Scope) error

	// Update persists a mutated scope.
	Update(ctx context.Context, s *Scope) error

	// Delete removes a scope row. Child checks happen above this layer.
	Delete(ctx context.Context, id ids.ScopeID) error
}
