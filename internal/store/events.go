package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/kamiazya/scopes/internal/ids"
	syncpkg "github.com/kamiazya/scopes/internal/sync"
	"github.com/kamiazya/scopes/internal/vclock"
)

// EventLog implements sync.EventStore over the store: an append-only log
// with idempotent writes.
type EventLog struct {
	s *Store
}

// Events returns the event-log view of the store.
func (s *Store) Events() *EventLog {
	return &EventLog{s: s}
}

const eventColumns = "event_id, aggregate_id, version, vector_clock, kind, payload, timestamp, device_id"

// Append writes events to the log. Re-appending a stored event ID is a
// no-op so replayed batches stay idempotent.
func (l *EventLog) Append(ctx context.Context, events []syncpkg.Event) error {
	return l.s.inTx(ctx, func(tx *sql.Tx) error {
		for _, ev := range events {
			clockJSON, err := json.Marshal(ev.Clock)
			if err != nil {
				return wrapErr("append event", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO events (event_id, aggregate_id, version, vector_clock, kind, payload, timestamp, device_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(event_id) DO NOTHING
			`,
				ev.ID.String(),
				ev.AggregateID,
				ev.Version,
				string(clockJSON),
				ev.Kind,
				string(ev.Payload),
				formatTime(ev.Timestamp),
				ev.DeviceID.String(),
			)
			if err != nil {
				return wrapErr("append event", err)
			}
		}
		return nil
	})
}

// EventsSinceVersion returns an aggregate's events with version >
// sinceVersion, in version order.
func (l *EventLog) EventsSinceVersion(ctx context.Context, aggregateID string, sinceVersion int64) ([]syncpkg.Event, error) {
	rows, err := l.s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE aggregate_id = ? AND version > ?
		ORDER BY version ASC, seq ASC
	`, aggregateID, sinceVersion)
	if err != nil {
		return nil, wrapErr("read events", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// EventsAhead returns events whose clocks the given clock does not cover,
// in log order. The clock comparison runs in Go: vector dominance is not
// expressible in a SQL predicate.
func (l *EventLog) EventsAhead(ctx context.Context, clock vclock.Clock) ([]syncpkg.Event, error) {
	rows, err := l.s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY seq ASC`)
	if err != nil {
		return nil, wrapErr("read events", err)
	}
	defer rows.Close()

	all, err := collectEvents(rows)
	if err != nil {
		return nil, err
	}

	var ahead []syncpkg.Event
	for _, ev := range all {
		if !covers(clock, ev.Clock) {
			ahead = append(ahead, ev)
		}
	}
	return ahead, nil
}

// LatestVersion returns the highest stored version for an aggregate, zero
// when none.
func (l *EventLog) LatestVersion(ctx context.Context, aggregateID string) (int64, error) {
	var version int64
	err := l.s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_id = ?`, aggregateID).Scan(&version)
	if err != nil {
		return 0, wrapErr("latest version", err)
	}
	return version, nil
}

// covers reports whether holder's clock dominates the event clock: every
// counter of the event is already accounted for.
func covers(holder, event vclock.Clock) bool {
	return event.HappenedBefore(holder) || event.Equal(holder)
}

func collectEvents(rows *sql.Rows) ([]syncpkg.Event, error) {
	var out []syncpkg.Event
	for rows.Next() {
		var (
			ev        syncpkg.Event
			rawID     string
			rawClock  string
			payload   string
			timestamp string
			rawDevice string
		)
		if err := rows.Scan(&rawID, &ev.AggregateID, &ev.Version, &rawClock, &ev.Kind, &payload, &timestamp, &rawDevice); err != nil {
			return nil, wrapErr("scan event", err)
		}

		id, err := ids.ParseEventID(rawID)
		if err != nil {
			return nil, wrapErr("scan event", err)
		}
		ev.ID = id
		ev.DeviceID = ids.DeviceID(rawDevice)
		ev.Payload = json.RawMessage(payload)

		if err := json.Unmarshal([]byte(rawClock), &ev.Clock); err != nil {
			return nil, wrapErr("scan event", err)
		}
		if ev.Timestamp, err = parseTime(timestamp); err != nil {
			return nil, wrapErr("scan event", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate events", err)
	}
	return out, nil
}
