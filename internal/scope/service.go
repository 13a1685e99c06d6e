package scope

import (
	"context"

	"github.com/kamiazya/scopes/internal/ids"
)

// Limits configures the hierarchy guards. Nil fields disable a guard.
type Limits struct {
	MaxDepth    *int
	MaxChildren *int
}

// DefaultLimits returns the standard depth and sibling bounds.
func DefaultLimits() Limits {
	depth := MaxHierarchyDepth
	children := MaxChildrenPerParent
	return Limits{MaxDepth: &depth, MaxChildren: &children}
}

// Service performs repository-backed scope validation and mutation checks.
type Service struct {
	repo   Repository
	limits Limits
}

// NewService creates a Service with the given limits.
func NewService(repo Repository, limits Limits) *Service {
	return &Service{repo: repo, limits: limits}
}

// ValidateCreation checks a prospective scope creation and accumulates every
// failure instead of stopping at the first, so a caller can render all of
// them at once.
func (s *Service) ValidateCreation(ctx context.Context, title, description string, parentID *ids.ScopeID) (*ValidationErrors, error) {
	result := &ValidationErrors{}

	validTitle, err := ValidateTitle(title)
	result.Add(err)
	if _, err := ValidateDescription(description); err != nil {
		result.Add(err)
	}

	if parentID != nil {
		exists, err := s.repo.ExistsByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if !exists {
			result.Add(&Error{
				Code:    ErrCodeParentNotFound,
				Message: "parent scope does not exist",
				ScopeID: parentID.String(),
			})
			return result, nil
		}

		depth, err := s.repo.FindHierarchyDepth(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		// depth counts the parent's ancestors; with the parent itself that is
		// the parent's depth (a root sits at depth 1), and the child would
		// sit one level below it.
		result.Add(ValidateHierarchyDepth(*parentID, depth+1, s.limits.MaxDepth))

		count, err := s.repo.CountByParentID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		result.Add(ValidateChildrenLimit(*parentID, count, s.limits.MaxChildren))
	}

	if validTitle != "" {
		duplicate, err := s.repo.ExistsByParentIDAndTitle(ctx, parentID, NormalizeTitle(validTitle))
		if err != nil {
			return nil, err
		}
		if duplicate {
			dup := &Error{
				Code:    ErrCodeDuplicateTitle,
				Message: "a sibling with this title already exists",
				Details: map[string]string{"title": NormalizeTitle(validTitle)},
			}
			if parentID != nil {
				dup.Details["parent"] = parentID.String()
			}
			result.Add(dup)
		}
	}

	return result, nil
}

// ValidateMove checks changing a scope's parent: existence, self-parenting,
// cycles, depth, and sibling count at the destination.
func (s *Service) ValidateMove(ctx context.Context, scopeID ids.ScopeID, newParentID *ids.ScopeID) error {
	if newParentID == nil {
		return nil
	}

	exists, err := s.repo.ExistsByID(ctx, *newParentID)
	if err != nil {
		return err
	}
	if !exists {
		return &Error{
			Code:    ErrCodeParentNotFound,
			Message: "parent scope does not exist",
			ScopeID: newParentID.String(),
		}
	}

	path, err := s.repo.AncestorPath(ctx, *newParentID)
	if err != nil {
		return err
	}
	if err := DetectCircularReference(path); err != nil {
		return err
	}
	if err := ValidateParentChildRelationship(*newParentID, scopeID, path); err != nil {
		return err
	}

	depth, err := s.repo.FindHierarchyDepth(ctx, *newParentID)
	if err != nil {
		return err
	}
	// The new parent's depth counts the parent itself; the moved scope sits
	// one level below it.
	if err := ValidateHierarchyDepth(scopeID, depth+1, s.limits.MaxDepth); err != nil {
		return err
	}

	count, err := s.repo.CountByParentID(ctx, newParentID)
	if err != nil {
		return err
	}
	return ValidateChildrenLimit(*newParentID, count, s.limits.MaxChildren)
}

// ValidateDeletion rejects deleting a scope that still has children.
func (s *Service) ValidateDeletion(ctx context.Context, id ids.ScopeID) error {
	count, err := s.repo.CountByParentID(ctx, &id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &Error{
			Code:    ErrCodeHasChildren,
			Message: "scope still has children; delete or move them first",
			ScopeID: id.String(),
		}
	}
	return nil
}
