package scope

import (
	"fmt"
	"strings"

	"github.com/kamiazya/scopes/internal/ids"
)

// The hierarchy validators are pure functions over ancestor paths and
// counters; they never touch a repository. The application layer feeds them
// values it reads through ScopeRepository.

// CalculateDepth returns the depth of a scope from its ancestor path (the
// scope itself first, up to the root): the path's length, so a root sits at
// depth 1.
func CalculateDepth(path []ids.ScopeID) int {
	return len(path)
}

// DetectCircularReference walks path and fails on the first repeated ID,
// reporting the IDs seen up to that point.
func DetectCircularReference(path []ids.ScopeID) error {
	seen := make(map[ids.ScopeID]bool, len(path))
	var walked []string
	for _, id := range path {
		if seen[id] {
			return &Error{
				Code:    ErrCodeCircularPath,
				Message: fmt.Sprintf("id repeats on ancestor path after [%s]", strings.Join(walked, ", ")),
				ScopeID: id.String(),
			}
		}
		seen[id] = true
		walked = append(walked, id.String())
	}
	return nil
}

// ValidateParentChildRelationship rejects self-parenting and parent changes
// that would close a cycle. parentAncestorPath is the prospective parent's
// ancestor path including the parent itself.
func ValidateParentChildRelationship(parentID, childID ids.ScopeID, parentAncestorPath []ids.ScopeID) error {
	if parentID == childID {
		return &Error{
			Code:    ErrCodeSelfParenting,
			Message: "a scope cannot be its own parent",
			ScopeID: childID.String(),
		}
	}
	for _, ancestor := range parentAncestorPath {
		if ancestor == childID {
			return &Error{
				Code:    ErrCodeCircularReference,
				Message: "scope is an ancestor of the proposed parent",
				ScopeID: childID.String(),
				Details: map[string]string{"parent": parentID.String()},
			}
		}
	}
	return nil
}

// ValidateChildrenLimit rejects adding a child when the parent already holds
// max children. A nil max disables the check.
func ValidateChildrenLimit(parentID ids.ScopeID, currentCount int, max *int) error {
	if max != nil && currentCount >= *max {
		return &Error{
			Code:    ErrCodeMaxChildrenExceeded,
			Message: fmt.Sprintf("parent already has %d children (max %d)", currentCount, *max),
			ScopeID: parentID.String(),
			Details: map[string]string{
				"current": fmt.Sprintf("%d", currentCount),
				"max":     fmt.Sprintf("%d", *max),
			},
		}
	}
	return nil
}

// ValidateHierarchyDepth rejects placing a scope one level below
// currentDepth when that would exceed max. A nil max disables the check.
func ValidateHierarchyDepth(scopeID ids.ScopeID, currentDepth int, max *int) error {
	if max != nil && currentDepth+1 > *max {
		return &Error{
			Code:    ErrCodeMaxDepthExceeded,
			Message: fmt.Sprintf("placing scope at depth %d exceeds max %d", currentDepth+1, *max),
			ScopeID: scopeID.String(),
			Details: map[string]string{
				"attempted": fmt.Sprintf("%d", currentDepth+1),
				"max":       fmt.Sprintf("%d", *max),
			},
		}
	}
	return nil
}
