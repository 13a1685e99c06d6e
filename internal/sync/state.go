package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/vclock"
)

// Status is the per-remote-device sync lifecycle state.
type Status string

const (
	// StatusNeverSynced marks a device no round has completed with.
	StatusNeverSynced Status = "NEVER_SYNCED"

	// StatusInProgress marks a running round. A second round against the
	// same device fails fast while this holds.
	StatusInProgress Status = "IN_PROGRESS"

	// StatusSuccess marks a completed round.
	StatusSuccess Status = "SUCCESS"

	// StatusFailed marks a round that ended in an error.
	StatusFailed Status = "FAILED"

	// StatusOffline marks a device explicitly taken out of rotation.
	StatusOffline Status = "OFFLINE"
)

// MaxPendingChanges caps the pending-changes counter.
const MaxPendingChanges = 1_000_000

// TimestampTolerance is the clock-skew allowance when comparing persisted
// timestamps.
const TimestampTolerance = time.Second

// State tracks synchronization with one remote device. Mutating methods
// return a new State; transitions outside the state machine return a typed
// StateViolation error.
type State struct {
	DeviceID           ids.DeviceID
	LastSyncAt         *time.Time
	RemoteClock        vclock.Clock
	LastSuccessfulPush *time.Time
	LastSuccessfulPull *time.Time
	Status             Status
	PendingChanges     int
}

// NewState creates the initial state for a device never synced with.
func NewState(device ids.DeviceID) State {
	return State{
		DeviceID:    device,
		RemoteClock: vclock.New(),
		Status:      StatusNeverSynced,
	}
}

// startable lists the statuses a round may begin from.
func (s State) startable() bool {
	switch s.Status {
	case StatusNeverSynced, StatusSuccess, StatusFailed:
		return true
	default:
		return false
	}
}

// StartSync begins a round. Legal from NEVER_SYNCED, SUCCESS, and FAILED.
func (s State) StartSync() (State, error) {
	if !s.startable() {
		return s, s.violation("startSync")
	}
	s.Status = StatusInProgress
	return s, nil
}

// MarkSyncSuccess completes a round: records push/pull timestamps, merges
// the remote clock, and clears pending changes. Legal only from IN_PROGRESS.
func (s State) MarkSyncSuccess(pushed, pulled int, mergedRemoteClock vclock.Clock, now time.Time) (State, error) {
	if s.Status != StatusInProgress {
		return s, s.violation("markSyncSuccess")
	}
	s.Status = StatusSuccess
	s.LastSyncAt = &now
	if pushed > 0 {
		t := now
		s.LastSuccessfulPush = &t
	}
	if pulled > 0 {
		t := now
		s.LastSuccessfulPull = &t
	}
	s.RemoteClock = s.RemoteClock.Merge(mergedRemoteClock)
	s.PendingChanges = 0
	return s, nil
}

// MarkSyncFailed ends a round in failure. Legal only from IN_PROGRESS.
func (s State) MarkSyncFailed(now time.Time) (State, error) {
	if s.Status != StatusInProgress {
		return s, s.violation("markSyncFailed")
	}
	s.Status = StatusFailed
	s.LastSyncAt = &now
	return s, nil
}

// MarkOffline takes the device out of rotation. Legal from any status.
func (s State) MarkOffline() State {
	s.Status = StatusOffline
	return s
}

// MarkOnline returns an offline device to rotation: to NEVER_SYNCED when it
// has never completed a round, otherwise to SUCCESS.
func (s State) MarkOnline() (State, error) {
	if s.Status != StatusOffline {
		return s, s.violation("markOnline")
	}
	if s.LastSyncAt == nil {
		s.Status = StatusNeverSynced
	} else {
		s.Status = StatusSuccess
	}
	return s, nil
}

// CanSync reports whether a round may start.
func (s State) CanSync() bool {
	return s.Status != StatusInProgress && s.Status != StatusOffline
}

// NeedsSync reports whether the device has something worth syncing: pending
// local changes, or a failed round to retry.
func (s State) NeedsSync() bool {
	if !s.CanSync() {
		return false
	}
	return s.PendingChanges > 0 || s.Status == StatusFailed
}

// IsStale reports whether the last completed round is older than threshold.
// A device never synced is always stale.
func (s State) IsStale(threshold time.Duration, now time.Time) bool {
	return s.LastSyncAt == nil || now.Sub(*s.LastSyncAt) > threshold
}

// IncrementPendingChanges adds n (> 0) to the pending counter, capping at
// MaxPendingChanges.
func (s State) IncrementPendingChanges(n int) (State, error) {
	if n <= 0 {
		return s, &Error{
			Code:     ErrCodePendingOverflow,
			Message:  fmt.Sprintf("increment must be positive, got %d", n),
			DeviceID: s.DeviceID.String(),
		}
	}
	s.PendingChanges += n
	if s.PendingChanges > MaxPendingChanges {
		s.PendingChanges = MaxPendingChanges
	}
	return s, nil
}

// Validate checks the persistence invariants: push/pull timestamps may not
// exceed the last sync time by more than the skew tolerance, and the
// pending counter stays within bounds.
func (s State) Validate() error {
	if s.LastSuccessfulPush != nil {
		if s.LastSyncAt == nil || s.LastSuccessfulPush.Sub(*s.LastSyncAt) > TimestampTolerance {
			return s.invariant("lastSuccessfulPush is ahead of lastSyncAt")
		}
	}
	if s.LastSuccessfulPull != nil {
		if s.LastSyncAt == nil || s.LastSuccessfulPull.Sub(*s.LastSyncAt) > TimestampTolerance {
			return s.invariant("lastSuccessfulPull is ahead of lastSyncAt")
		}
	}
	if s.PendingChanges < 0 || s.PendingChanges > MaxPendingChanges {
		return s.invariant("pendingChanges out of bounds")
	}
	return nil
}

func (s State) violation(event string) error {
	return &Error{
		Code:     ErrCodeStateViolation,
		Message:  fmt.Sprintf("%s is not legal from %s", event, s.Status),
		DeviceID: s.DeviceID.String(),
	}
}

func (s State) invariant(msg string) error {
	return &Error{
		Code:     ErrCodeStateViolation,
		Message:  msg,
		DeviceID: s.DeviceID.String(),
	}
}

// StateRepository persists per-device sync state. Mutations are idempotent
// when replayed with the same from/to pair.
type StateRepository interface {
	// FindByDeviceID returns the device's state, nil when the device has
	// never been seen.
	FindByDeviceID(ctx context.Context, device ids.DeviceID) (*State, error)

	// Save upserts the state.
	Save(ctx context.Context, s State) error
}
