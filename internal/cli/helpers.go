package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kamiazya/scopes/internal/alias"
	"github.com/kamiazya/scopes/internal/aspect"
	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/scope"
	syncpkg "github.com/kamiazya/scopes/internal/sync"
	"github.com/kamiazya/scopes/internal/vclock"
)

// deviceID returns this device's ID, defaulting when the config has none.
func (a *App) deviceID() ids.DeviceID {
	if a.Config.DeviceID != "" {
		return ids.DeviceID(a.Config.DeviceID)
	}
	return ids.DeviceID("local")
}

// resolveScope turns a user-supplied reference (ULID or alias, exact or
// unique prefix) into a scope ID.
func (a *App) resolveScope(ctx context.Context, ref string) (ids.ScopeID, error) {
	if id, err := ids.ParseScopeID(ref); err == nil {
		return id, nil
	}
	return a.Aliases.ResolvePrefix(ctx, ref)
}

// nextClock derives the vector clock for an aggregate's next event: the
// last event's clock advanced for this device.
func (a *App) nextClock(ctx context.Context, aggregateID string) (vclock.Clock, int64, error) {
	version, err := a.Store.Events().LatestVersion(ctx, aggregateID)
	if err != nil {
		return nil, 0, err
	}

	last := vclock.New()
	if version > 0 {
		events, err := a.Store.Events().EventsSinceVersion(ctx, aggregateID, version-1)
		if err != nil {
			return nil, 0, err
		}
		if len(events) > 0 {
			last = events[len(events)-1].Clock
		}
	}
	return last.Increment(a.deviceID()), version, nil
}

// appendScopeEvent encodes and appends one scope event to the log.
func (a *App) appendScopeEvent(ctx context.Context, ev scope.Event) error {
	env, err := scope.EncodeEvent(ev, a.deviceID())
	if err != nil {
		return err
	}
	return a.Store.Events().Append(ctx, []syncpkg.Event{env})
}

// header builds the common fields for a new scope event.
func (a *App) header(scopeID ids.ScopeID, version int64, clock vclock.Clock, at time.Time) scope.EventHeader {
	return scope.EventHeader{
		EventID: ids.NewEventID(),
		ScopeID: scopeID,
		Version: version,
		Clock:   clock,
		At:      at,
	}
}

// sortedAspectKeys returns a scope's aspect keys in stable order.
func sortedAspectKeys(s *scope.Scope) []aspect.Key {
	keys := make([]aspect.Key, 0, len(s.Aspects))
	for k := range s.Aspects {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// scopePayload builds the JSON representation of a scope.
func scopePayload(s *scope.Scope, aliases []alias.Record) map[string]any {
	aspects := make(map[string][]string, len(s.Aspects))
	for k, values := range s.Aspects {
		list := make([]string, len(values))
		for i, v := range values {
			list[i] = v.String()
		}
		aspects[k.String()] = list
	}

	aliasList := make([]map[string]string, len(aliases))
	for i, record := range aliases {
		aliasList[i] = map[string]string{
			"name": record.Name.String(),
			"type": string(record.Type),
		}
	}

	payload := map[string]any{
		"id":      s.ID.String(),
		"title":   s.Title,
		"aspects": aspects,
		"aliases": aliasList,
	}
	if s.Description != "" {
		payload["description"] = s.Description
	}
	if s.ParentID != nil {
		payload["parent"] = s.ParentID.String()
	}
	return payload
}

// describeScope renders the one-line text form of a scope.
func describeScope(s *scope.Scope, canonical *alias.Record) string {
	name := s.ID.String()
	if canonical != nil {
		name = canonical.Name.String()
	}
	return fmt.Sprintf("%s  %s", name, s.Title)
}
