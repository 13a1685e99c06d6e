package sync

import (
	"fmt"
	"time"

	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/vclock"
)

// ConflictType classifies a divergence between local and remote streams.
type ConflictType string

const (
	// ConflictConcurrentModification marks events with concurrent vector
	// clocks.
	ConflictConcurrentModification ConflictType = "CONCURRENT_MODIFICATION"

	// ConflictVersionMismatch marks causally unrelated version divergence.
	ConflictVersionMismatch ConflictType = "VERSION_MISMATCH"

	// ConflictMissingDependency marks a remote event referencing an
	// aggregate the local log has never seen. Produced by event ingestion.
	ConflictMissingDependency ConflictType = "MISSING_DEPENDENCY"

	// ConflictDeletedModified marks a remote modification of a locally
	// deleted aggregate. Produced by event ingestion.
	ConflictDeletedModified ConflictType = "DELETED_MODIFIED"

	// ConflictSchemaMismatch marks an event whose kind or payload shape
	// the local build does not understand. Produced by event ingestion.
	ConflictSchemaMismatch ConflictType = "SCHEMA_MISMATCH"
)

// Severity ranks how urgently a conflict needs attention.
type Severity string

// Severity levels, lowest first.
const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Resolution is the outcome applied to a conflict.
type Resolution string

const (
	// ResolutionKeptLocal keeps the local event stream.
	ResolutionKeptLocal Resolution = "KEPT_LOCAL"

	// ResolutionAcceptedRemote adopts the remote event stream.
	ResolutionAcceptedRemote Resolution = "ACCEPTED_REMOTE"

	// ResolutionMerged combined both sides.
	ResolutionMerged Resolution = "MERGED"

	// ResolutionDeferred leaves the conflict for later manual handling.
	ResolutionDeferred Resolution = "DEFERRED"
)

// Conflict records one divergence between the local and remote event
// streams for an aggregate. Conflicts reference event IDs only; they never
// own aggregate state.
type Conflict struct {
	ID            ids.ConflictID
	LocalEventID  ids.EventID
	RemoteEventID ids.EventID
	AggregateID   string
	LocalVersion  int64
	RemoteVersion int64
	LocalClock    vclock.Clock
	RemoteClock   vclock.Clock
	Type          ConflictType

	// LWW inputs: each side's event timestamp and producing device.
	LocalTimestamp  time.Time
	RemoteTimestamp time.Time
	LocalDevice     ids.DeviceID
	RemoteDevice    ids.DeviceID

	DetectedAt time.Time
	ResolvedAt *time.Time
	Resolution *Resolution
}

// DetectParams are the inputs to Detect, one side each.
type DetectParams struct {
	LocalEventID  ids.EventID
	RemoteEventID ids.EventID
	AggregateID   string
	LocalVersion  int64
	RemoteVersion int64
	LocalClock    vclock.Clock
	RemoteClock   vclock.Clock

	LocalTimestamp  time.Time
	RemoteTimestamp time.Time
	LocalDevice     ids.DeviceID
	RemoteDevice    ids.DeviceID
}

// Detect classifies the divergence between a local and a remote event.
// Causally ordered clocks are no conflict: the order decides. Concurrent
// clocks are a concurrent modification; equal clocks with differing
// versions are a version mismatch. Returns nil when there is no conflict.
//
// Missing-dependency, deleted-modified, and schema conflicts are recognized
// by event ingestion and constructed directly via NewIngestionConflict.
func Detect(p DetectParams, now time.Time) *Conflict {
	if p.LocalClock.HappenedBefore(p.RemoteClock) || p.RemoteClock.HappenedBefore(p.LocalClock) {
		return nil
	}

	var conflictType ConflictType
	switch {
	case p.LocalClock.ConcurrentWith(p.RemoteClock):
		conflictType = ConflictConcurrentModification
	case p.LocalVersion != p.RemoteVersion:
		conflictType = ConflictVersionMismatch
	default:
		return nil
	}

	return &Conflict{
		ID:              ids.NewConflictID(),
		LocalEventID:    p.LocalEventID,
		RemoteEventID:   p.RemoteEventID,
		AggregateID:     p.AggregateID,
		LocalVersion:    p.LocalVersion,
		RemoteVersion:   p.RemoteVersion,
		LocalClock:      p.LocalClock,
		RemoteClock:     p.RemoteClock,
		Type:            conflictType,
		LocalTimestamp:  p.LocalTimestamp,
		RemoteTimestamp: p.RemoteTimestamp,
		LocalDevice:     p.LocalDevice,
		RemoteDevice:    p.RemoteDevice,
		DetectedAt:      now,
	}
}

// NewIngestionConflict constructs a conflict of a type the ingestion layer
// recognized itself (missing dependency, deleted-modified, schema mismatch).
func NewIngestionConflict(t ConflictType, p DetectParams, now time.Time) *Conflict {
	return &Conflict{
		ID:              ids.NewConflictID(),
		LocalEventID:    p.LocalEventID,
		RemoteEventID:   p.RemoteEventID,
		AggregateID:     p.AggregateID,
		LocalVersion:    p.LocalVersion,
		RemoteVersion:   p.RemoteVersion,
		LocalClock:      p.LocalClock,
		RemoteClock:     p.RemoteClock,
		Type:            t,
		LocalTimestamp:  p.LocalTimestamp,
		RemoteTimestamp: p.RemoteTimestamp,
		LocalDevice:     p.LocalDevice,
		RemoteDevice:    p.RemoteDevice,
		DetectedAt:      now,
	}
}

// IsPending reports whether the conflict is still unresolved.
func (c *Conflict) IsPending() bool {
	return c.Resolution == nil
}

// IsTrueConflict reports whether the conflict genuinely needs resolution.
// A CONCURRENT_MODIFICATION whose clocks turn out causally ordered (stale
// classification) is not a true conflict; every other type always is.
func (c *Conflict) IsTrueConflict() bool {
	if c.Type == ConflictConcurrentModification {
		return c.LocalClock.ConcurrentWith(c.RemoteClock)
	}
	return true
}

// ConflictSeverity ranks the conflict for triage.
func (c *Conflict) ConflictSeverity() Severity {
	switch c.Type {
	case ConflictMissingDependency:
		return SeverityCritical
	case ConflictVersionMismatch:
		delta := c.LocalVersion - c.RemoteVersion
		if delta < 0 {
			delta = -delta
		}
		if delta > 1 {
			return SeverityHigh
		}
		return SeverityLow
	case ConflictConcurrentModification:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// SuggestResolution proposes an outcome from causal order alone, whatever
// the conflict type: a side that happened before the other loses; concurrent
// or equal clocks are deferred to the user.
func (c *Conflict) SuggestResolution() Resolution {
	switch {
	case c.LocalClock.HappenedBefore(c.RemoteClock):
		return ResolutionAcceptedRemote
	case c.RemoteClock.HappenedBefore(c.LocalClock):
		return ResolutionKeptLocal
	default:
		return ResolutionDeferred
	}
}

// Resolve returns a resolved copy carrying the action and timestamp.
// Resolving an already-resolved conflict is rejected.
func (c *Conflict) Resolve(action Resolution, now time.Time) (*Conflict, error) {
	if !c.IsPending() {
		return nil, &Error{
			Code:    ErrCodeConflictResolution,
			Message: fmt.Sprintf("conflict %s is already resolved", c.ID),
		}
	}
	out := *c
	out.Resolution = &action
	out.ResolvedAt = &now
	return &out, nil
}

// Defer resolves the conflict as DEFERRED.
func (c *Conflict) Defer(now time.Time) (*Conflict, error) {
	return c.Resolve(ResolutionDeferred, now)
}

// Merge resolves the conflict as MERGED.
func (c *Conflict) Merge(now time.Time) (*Conflict, error) {
	return c.Resolve(ResolutionMerged, now)
}

// Validate checks the persistence invariants: resolution and resolvedAt are
// co-present, and resolution does not predate detection beyond the skew
// tolerance.
func (c *Conflict) Validate() error {
	if (c.Resolution == nil) != (c.ResolvedAt == nil) {
		return &Error{
			Code:    ErrCodeConflictResolution,
			Message: "resolution and resolvedAt must be set together",
		}
	}
	if c.ResolvedAt != nil && c.ResolvedAt.Before(c.DetectedAt.Add(-TimestampTolerance)) {
		return &Error{
			Code:    ErrCodeConflictResolution,
			Message: "resolvedAt predates detectedAt",
		}
	}
	if c.LocalVersion < 0 || c.RemoteVersion < 0 {
		return &Error{
			Code:    ErrCodeConflictResolution,
			Message: "versions must be non-negative",
		}
	}
	return nil
}
