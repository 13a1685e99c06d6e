// Package ids defines the identifier types shared across the Scopes domain.
//
// Scope and alias identifiers are ULIDs (26-character Crockford base32,
// time-ordered). Event and conflict identifiers are UUIDv7, which are also
// time-ordered and cheap to generate at event-append rate. Device identifiers
// are opaque strings assigned at install time.
package ids

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ScopeID identifies a scope aggregate. ULID, immutable, opaque.
type ScopeID struct {
	v ulid.ULID
}

// AliasID identifies an alias record, independent of the scope it names.
// Its entropy bits seed deterministic alias-name generation.
type AliasID struct {
	v ulid.ULID
}

// EventID identifies a domain event in the event log.
type EventID string

// ConflictID identifies a sync conflict record.
type ConflictID string

// DeviceID identifies a device participating in synchronization.
// Opaque, non-blank.
type DeviceID string

// NewScopeID generates a time-ordered ScopeID from crypto entropy.
func NewScopeID() ScopeID {
	return ScopeID{v: ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)}
}

// NewScopeIDAt generates a ScopeID at a fixed time from the given entropy
// source. Used by tests that need reproducible identifiers.
func NewScopeIDAt(t time.Time, entropy io.Reader) (ScopeID, error) {
	v, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return ScopeID{}, fmt.Errorf("generate scope id: %w", err)
	}
	return ScopeID{v: v}, nil
}

// ParseScopeID parses a 26-character ULID string.
func ParseScopeID(s string) (ScopeID, error) {
	v, err := ulid.ParseStrict(s)
	if err != nil {
		return ScopeID{}, fmt.Errorf("invalid scope id %q: %w", s, err)
	}
	return ScopeID{v: v}, nil
}

// String returns the canonical 26-character representation.
func (id ScopeID) String() string { return id.v.String() }

// IsZero reports whether the ID is the zero value.
func (id ScopeID) IsZero() bool { return id.v == ulid.ULID{} }

// Time returns the timestamp component of the ULID.
func (id ScopeID) Time() time.Time { return ulid.Time(id.v.Time()) }

// NewAliasID generates a time-ordered AliasID from crypto entropy.
func NewAliasID() AliasID {
	return AliasID{v: ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)}
}

// NewAliasIDAt generates an AliasID at a fixed time from the given entropy
// source.
func NewAliasIDAt(t time.Time, entropy io.Reader) (AliasID, error) {
	v, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return AliasID{}, fmt.Errorf("generate alias id: %w", err)
	}
	return AliasID{v: v}, nil
}

// ParseAliasID parses a 26-character ULID string.
func ParseAliasID(s string) (AliasID, error) {
	v, err := ulid.ParseStrict(s)
	if err != nil {
		return AliasID{}, fmt.Errorf("invalid alias id %q: %w", s, err)
	}
	return AliasID{v: v}, nil
}

// String returns the canonical 26-character representation.
func (id AliasID) String() string { return id.v.String() }

// IsZero reports whether the ID is the zero value.
func (id AliasID) IsZero() bool { return id.v == ulid.ULID{} }

// Entropy returns the 10 random bytes of the ULID. The deterministic alias
// generator indexes its word lists with these bits.
func (id AliasID) Entropy() [10]byte {
	var e [10]byte
	copy(e[:], id.v[6:])
	return e
}

// NewEventID generates a time-ordered event identifier.
func NewEventID() EventID {
	return EventID(uuid.Must(uuid.NewV7()).String())
}

// ParseEventID validates an event identifier.
func ParseEventID(s string) (EventID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid event id %q: %w", s, err)
	}
	return EventID(s), nil
}

// String returns the identifier text.
func (id EventID) String() string { return string(id) }

// NewConflictID generates a time-ordered conflict identifier.
func NewConflictID() ConflictID {
	return ConflictID(uuid.Must(uuid.NewV7()).String())
}

// String returns the identifier text.
func (id ConflictID) String() string { return string(id) }

// NewDeviceID validates and constructs a DeviceID. Blank input is rejected.
func NewDeviceID(s string) (DeviceID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("device id must not be blank")
	}
	return DeviceID(s), nil
}

// String returns the identifier text.
func (id DeviceID) String() string { return string(id) }
