package sync

import (
	"context"
	"time"

	"github.com/kamiazya/scopes/internal/ids"
)

// Strategy selects how a batch of conflicts is resolved.
type Strategy string

const (
	// StrategyLastWriteWins keeps whichever side carries the later event
	// timestamp, ties broken by device ID lexicographic order.
	StrategyLastWriteWins Strategy = "LAST_WRITE_WINS"

	// StrategyKeepLocal keeps the local side of every conflict.
	StrategyKeepLocal Strategy = "KEEP_LOCAL"

	// StrategyKeepRemote accepts the remote side of every conflict.
	StrategyKeepRemote Strategy = "KEEP_REMOTE"

	// StrategyManual defers every conflict to the user.
	StrategyManual Strategy = "MANUAL"

	// StrategyMerge resolves conflicts on aggregates the Policy's Mergeable
	// predicate accepts as MERGED and defers the rest. Only the outcome is
	// recorded: no state from the two sides is combined, and the
	// orchestrator applies no event for a MERGED conflict.
	StrategyMerge Strategy = "MERGE"
)

// Policy applies a strategy to conflicts in batch. Mergeable decides which
// aggregates the MERGE strategy marks MERGED; a nil predicate treats nothing
// as mergeable.
type Policy struct {
	Strategy  Strategy
	Mergeable func(aggregateID string) bool
}

// ResolveAll applies the policy to each pending conflict and returns the
// resolved copies. Conflicts already resolved pass through untouched.
func (p Policy) ResolveAll(conflicts []*Conflict, now time.Time) ([]*Conflict, error) {
	out := make([]*Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		if !c.IsPending() {
			out = append(out, c)
			continue
		}
		resolved, err := c.Resolve(p.actionFor(c), now)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

// actionFor picks the resolution one conflict receives under the policy.
func (p Policy) actionFor(c *Conflict) Resolution {
	switch p.Strategy {
	case StrategyKeepLocal:
		return ResolutionKeptLocal
	case StrategyKeepRemote:
		return ResolutionAcceptedRemote
	case StrategyManual:
		return ResolutionDeferred
	case StrategyMerge:
		if p.Mergeable != nil && p.Mergeable(c.AggregateID) {
			return ResolutionMerged
		}
		return ResolutionDeferred
	case StrategyLastWriteWins:
		return lastWriteWins(c)
	default:
		return ResolutionDeferred
	}
}

// lastWriteWins compares event timestamps, breaking exact ties by device ID
// lexicographic order so both devices decide identically.
func lastWriteWins(c *Conflict) Resolution {
	switch {
	case c.LocalTimestamp.After(c.RemoteTimestamp):
		return ResolutionKeptLocal
	case c.RemoteTimestamp.After(c.LocalTimestamp):
		return ResolutionAcceptedRemote
	case c.LocalDevice.String() > c.RemoteDevice.String():
		return ResolutionKeptLocal
	default:
		return ResolutionAcceptedRemote
	}
}

// ConflictRepository persists conflicts awaiting or carrying resolution.
type ConflictRepository interface {
	// Save upserts a conflict row.
	Save(ctx context.Context, c *Conflict) error

	// FindPending returns unresolved conflicts, oldest first.
	FindPending(ctx context.Context) ([]*Conflict, error)

	// FindByID returns a conflict, nil when absent.
	FindByID(ctx context.Context, id ids.ConflictID) (*Conflict, error)
}
