package alias

import (
	"context"

	"github.com/kamiazya/scopes/internal/ids"
)

// Repository is the persistence contract for alias records. Single-row
// operations are atomic; Rename moves a record to a new name in one
// transaction, so either both the removal of the old name and the creation
// of the new one happen, or neither does.
type Repository interface {
	// FindByName returns the record holding the name, nil when absent.
	FindByName(ctx context.Context, name Name) (*Record, error)

	// FindByScopeID returns every alias of a scope.
	FindByScopeID(ctx context.Context, scopeID ids.ScopeID) ([]Record, error)

	// FindCanonicalByScopeID returns the scope's canonical alias, nil
	// when the scope has none yet.
	FindCanonicalByScopeID(ctx context.Context, scopeID ids.ScopeID) (*Record, error)

	// FindByNamePrefix returns up to limit records whose name starts with
	// prefix, in name order.
	FindByNamePrefix(ctx context.Context, prefix string, limit int) ([]Record, error)

	// Save inserts a new record. A name collision surfaces as a
	// constraint error.
	Save(ctx context.Context, r Record) error

	// Update persists a mutated record (type changes).
	Update(ctx context.Context, r Record) error

	// Rename atomically moves the record at old to new. The record keeps
	// its ID, scope, and type.
	Rename(ctx context.Context, old, new Name) error

	// RemoveByName deletes the record holding the name.
	RemoveByName(ctx context.Context, name Name) error
}
