// Package sync implements the device synchronization core: the per-device
// sync state machine, conflict detection and resolution over vector clocks,
// and the orchestrator that drives one sync round against a remote device.
package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/vclock"
)

// Event is the wire and log envelope for one domain event. Payload is the
// event-kind-specific body; the envelope carries everything the sync
// protocol needs without understanding the body.
type Event struct {
	ID          ids.EventID     `json:"event_id"`
	AggregateID string          `json:"aggregate_id"`
	Version     int64           `json:"version"`
	Clock       vclock.Clock    `json:"vector_clock"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
	DeviceID    ids.DeviceID    `json:"device_id"`
}

// EventStore is the append-only log the sync core reads and writes.
// Per-aggregate events are totally ordered by (version, vector clock).
type EventStore interface {
	// Append adds events to the log. Appending an already-stored event ID
	// is a no-op (idempotent replay).
	Append(ctx context.Context, events []Event) error

	// EventsSinceVersion returns an aggregate's events with version >
	// sinceVersion, in version order.
	EventsSinceVersion(ctx context.Context, aggregateID string, sinceVersion int64) ([]Event, error)

	// EventsAhead returns events whose clocks are not dominated by the
	// given clock: everything the holder of that clock has not seen.
	EventsAhead(ctx context.Context, clock vclock.Clock) ([]Event, error)

	// LatestVersion returns the highest stored version for an aggregate,
	// zero when none.
	LatestVersion(ctx context.Context, aggregateID string) (int64, error)
}

// Transport moves events between devices. Implementations must honor
// context cancellation; a timeout surfaces as a network error on the sync
// round.
type Transport interface {
	// SendEvents pushes local events to the remote device and returns the
	// IDs the remote acknowledged.
	SendEvents(ctx context.Context, device ids.DeviceID, events []Event) ([]ids.EventID, error)

	// ReceiveEvents pulls the remote device's events not covered by
	// sinceClock.
	ReceiveEvents(ctx context.Context, device ids.DeviceID, sinceClock vclock.Clock) ([]Event, error)
}
