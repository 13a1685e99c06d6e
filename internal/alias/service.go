package alias

import (
	"context"
	"time"

	"github.com/kamiazya/scopes/internal/ids"
)

// MaxGenerateRetries bounds canonical-name generation attempts before the
// service gives up with ErrCodeGenerationFailed.
const MaxGenerateRetries = 10

// Service enforces the alias business rules over a Repository: one canonical
// alias per scope, global name uniqueness, atomic renames, bounded
// generation retries.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service. now is injected so tests control timestamps.
func NewService(repo Repository, now func() time.Time) *Service {
	return &Service{repo: repo, now: now}
}

// EnsureCanonical generates and saves a canonical alias for a scope that has
// none. Name collisions retry with a fresh AliasID up to MaxGenerateRetries.
func (s *Service) EnsureCanonical(ctx context.Context, scopeID ids.ScopeID) (*Record, error) {
	existing, err := s.repo.FindCanonicalByScopeID(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	for attempt := 0; attempt < MaxGenerateRetries; attempt++ {
		id := ids.NewAliasID()
		name := GenerateName(id)

		taken, err := s.repo.FindByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if taken != nil {
			continue
		}

		now := s.now()
		record := Record{
			ID:        id,
			ScopeID:   scopeID,
			Name:      name,
			Type:      TypeCanonical,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Save(ctx, record); err != nil {
			return nil, err
		}
		return &record, nil
	}

	return nil, &Error{
		Code:    ErrCodeGenerationFailed,
		Message: "could not generate a unique canonical alias",
	}
}

// SetCanonical makes name the scope's canonical alias. A previous canonical
// is demoted to custom; an existing custom alias of the same scope is
// promoted. A name held by another scope fails with ErrCodeDuplicateAlias.
func (s *Service) SetCanonical(ctx context.Context, scopeID ids.ScopeID, name Name) (*Record, error) {
	holder, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if holder != nil && holder.ScopeID != scopeID {
		return nil, &Error{
			Code:           ErrCodeDuplicateAlias,
			Message:        "alias is held by another scope",
			Name:           name.String(),
			ExistingScope:  holder.ScopeID.String(),
			AttemptedScope: scopeID.String(),
		}
	}

	previous, err := s.repo.FindCanonicalByScopeID(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if previous != nil && previous.Name != name {
		demoted := *previous
		demoted.Type = TypeCustom
		demoted.UpdatedAt = now
		if err := s.repo.Update(ctx, demoted); err != nil {
			return nil, err
		}
	}

	if holder != nil {
		if holder.Type == TypeCanonical {
			return holder, nil
		}
		promoted := *holder
		promoted.Type = TypeCanonical
		promoted.UpdatedAt = now
		if err := s.repo.Update(ctx, promoted); err != nil {
			return nil, err
		}
		return &promoted, nil
	}

	record := Record{
		ID:        ids.NewAliasID(),
		ScopeID:   scopeID,
		Name:      name,
		Type:      TypeCanonical,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// AddCustom attaches a custom alias to a scope. The name must be globally
// unused.
func (s *Service) AddCustom(ctx context.Context, scopeID ids.ScopeID, name Name) (*Record, error) {
	holder, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if holder != nil {
		return nil, &Error{
			Code:           ErrCodeDuplicateAlias,
			Message:        "alias is already in use",
			Name:           name.String(),
			ExistingScope:  holder.ScopeID.String(),
			AttemptedScope: scopeID.String(),
		}
	}

	now := s.now()
	record := Record{
		ID:        ids.NewAliasID(),
		ScopeID:   scopeID,
		Name:      name,
		Type:      TypeCustom,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Remove deletes a custom alias. Canonical aliases cannot be removed, only
// replaced through SetCanonical.
func (s *Service) Remove(ctx context.Context, name Name) error {
	record, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if record == nil {
		return &Error{Code: ErrCodeNotFound, Message: "alias does not exist", Name: name.String()}
	}
	if record.Type == TypeCanonical {
		return &Error{
			Code:    ErrCodeCannotRemoveCanonical,
			Message: "canonical alias can only be replaced, not removed",
			Name:    name.String(),
		}
	}
	return s.repo.RemoveByName(ctx, name)
}

// Rename moves an alias from old to new, preserving its type. When new is
// already held by the same scope the rename collapses to removing old; held
// by a different scope it fails with ErrCodeDuplicateAlias and neither row
// changes.
func (s *Service) Rename(ctx context.Context, old, new Name) error {
	record, err := s.repo.FindByName(ctx, old)
	if err != nil {
		return err
	}
	if record == nil {
		return &Error{Code: ErrCodeNotFound, Message: "alias does not exist", Name: old.String()}
	}

	holder, err := s.repo.FindByName(ctx, new)
	if err != nil {
		return err
	}
	if holder != nil {
		if holder.ScopeID != record.ScopeID {
			return &Error{
				Code:           ErrCodeDuplicateAlias,
				Message:        "target alias is held by another scope",
				Name:           new.String(),
				ExistingScope:  holder.ScopeID.String(),
				AttemptedScope: record.ScopeID.String(),
			}
		}
		// Same scope already holds the target name under some type; keep
		// the existing row and drop the old name. Canonical rows may not
		// vanish this way.
		if record.Type == TypeCanonical && holder.Type != TypeCanonical {
			return &Error{
				Code:    ErrCodeCannotRemoveCanonical,
				Message: "renaming the canonical alias onto a custom alias would remove it",
				Name:    old.String(),
			}
		}
		return s.repo.RemoveByName(ctx, old)
	}

	return s.repo.Rename(ctx, old, new)
}

// List returns every alias of a scope.
func (s *Service) List(ctx context.Context, scopeID ids.ScopeID) ([]Record, error) {
	return s.repo.FindByScopeID(ctx, scopeID)
}

// Resolve returns the scope ID holding the exact alias name.
func (s *Service) Resolve(ctx context.Context, name Name) (ids.ScopeID, error) {
	record, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return ids.ScopeID{}, err
	}
	if record == nil {
		return ids.ScopeID{}, &Error{Code: ErrCodeNotFound, Message: "alias does not exist", Name: name.String()}
	}
	return record.ScopeID, nil
}

// ResolvePrefix resolves a unique alias by prefix. An exact match wins over
// prefix matches; several distinct matches fail with ErrCodeAmbiguousPrefix.
func (s *Service) ResolvePrefix(ctx context.Context, prefix string) (ids.ScopeID, error) {
	if name, err := NewName(prefix); err == nil {
		if record, err := s.repo.FindByName(ctx, name); err != nil {
			return ids.ScopeID{}, err
		} else if record != nil {
			return record.ScopeID, nil
		}
	}

	matches, err := s.repo.FindByNamePrefix(ctx, prefix, 2)
	if err != nil {
		return ids.ScopeID{}, err
	}
	switch len(matches) {
	case 0:
		return ids.ScopeID{}, &Error{Code: ErrCodeNotFound, Message: "no alias matches prefix", Name: prefix}
	case 1:
		return matches[0].ScopeID, nil
	default:
		return ids.ScopeID{}, &Error{
			Code:    ErrCodeAmbiguousPrefix,
			Message: "several aliases match prefix",
			Name:    prefix,
		}
	}
}
