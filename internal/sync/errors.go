package sync

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes synchronization failures.
type ErrorCode string

const (
	// ErrCodeNetwork indicates a transport failure or timeout.
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"

	// ErrCodeInvalidDevice indicates an unknown or blank device ID.
	ErrCodeInvalidDevice ErrorCode = "INVALID_DEVICE"

	// ErrCodeConflictResolution indicates a resolution that could not be
	// applied.
	ErrCodeConflictResolution ErrorCode = "CONFLICT_RESOLUTION"

	// ErrCodeStateViolation indicates a sync-state transition outside the
	// state machine, including starting a round while one is in progress.
	ErrCodeStateViolation ErrorCode = "STATE_VIOLATION"

	// ErrCodePendingOverflow indicates a non-positive increment of the
	// pending-changes counter. Growth past the bound is capped, not
	// reported.
	ErrCodePendingOverflow ErrorCode = "PENDING_OVERFLOW"
)

// Error is the typed failure for sync operations.
type Error struct {
	Code     ErrorCode
	Message  string
	DeviceID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.DeviceID != "" {
		return fmt.Sprintf("%s: %s (device=%s)", e.Code, e.Message, e.DeviceID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from err, or "" when err is not a sync
// Error.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
