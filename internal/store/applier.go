package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/scope"
	syncpkg "github.com/kamiazya/scopes/internal/sync"
)

// ScopeApplier implements sync.Applier: it decodes pulled scope events,
// replays them onto the local projection, and appends them to the event log.
type ScopeApplier struct {
	s *Store
}

// Applier returns the event applier view of the store.
func (s *Store) Applier() *ScopeApplier {
	return &ScopeApplier{s: s}
}

// ApplyRemote applies one remote event. Classifiable failures surface as
// the sync sentinel errors so ingestion can turn them into conflicts:
// unknown event kinds as ErrUnknownSchema, updates to locally deleted
// scopes as ErrAggregateDeleted, and events whose predecessors are absent
// as ErrMissingDependency.
func (a *ScopeApplier) ApplyRemote(ctx context.Context, env syncpkg.Event) error {
	ev, err := scope.DecodeEvent(env)
	if err != nil {
		if errors.Is(err, scope.ErrUnknownKind) {
			return fmt.Errorf("%w: %s", syncpkg.ErrUnknownSchema, env.Kind)
		}
		return err
	}

	scopeID, err := ids.ParseScopeID(env.AggregateID)
	if err != nil {
		return err
	}

	current, err := a.s.Scopes().FindByID(ctx, scopeID)
	if err != nil {
		return err
	}

	if _, isCreate := ev.(scope.Created); !isCreate && current == nil {
		// The aggregate is unknown locally: either its history never
		// arrived, or it was deleted here.
		latest, err := a.s.Events().LatestVersion(ctx, env.AggregateID)
		if err != nil {
			return err
		}
		if latest > 0 {
			return fmt.Errorf("%w: %s", syncpkg.ErrAggregateDeleted, env.AggregateID)
		}
		return fmt.Errorf("%w: %s@%d", syncpkg.ErrMissingDependency, env.AggregateID, env.Version)
	}

	next, err := scope.Apply(current, []scope.Event{ev})
	if err != nil {
		if scope.CodeOf(err) == scope.ErrCodeVersionGap {
			return fmt.Errorf("%w: %s@%d", syncpkg.ErrMissingDependency, env.AggregateID, env.Version)
		}
		return err
	}

	if err := a.s.Events().Append(ctx, []syncpkg.Event{env}); err != nil {
		return err
	}

	switch {
	case next == nil:
		return a.s.Scopes().Delete(ctx, scopeID)
	case current == nil:
		return a.s.Scopes().Save(ctx, next)
	default:
		return a.s.Scopes().Update(ctx, next)
	}
}
