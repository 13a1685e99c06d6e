// Package vclock implements the per-device vector clocks that establish
// causal order between events produced on different devices.
package vclock

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kamiazya/scopes/internal/ids"
)

// Clock maps device IDs to monotonic counters. Devices without an entry are
// at zero. The zero value (nil map) is a valid empty clock.
//
// Clocks are immutable: Increment and Merge return new clocks.
type Clock map[ids.DeviceID]uint64

// New creates an empty clock.
func New() Clock {
	return Clock{}
}

// Counter returns the counter for device, zero when absent.
func (c Clock) Counter(device ids.DeviceID) uint64 {
	return c[device]
}

// Increment returns a copy of c with the device's counter advanced by one.
func (c Clock) Increment(device ids.DeviceID) Clock {
	out := c.clone()
	out[device]++
	return out
}

// Merge returns the pointwise maximum of c and other.
func (c Clock) Merge(other Clock) Clock {
	out := c.clone()
	for d, n := range other {
		if n > out[d] {
			out[d] = n
		}
	}
	return out
}

// HappenedBefore reports whether c causally precedes other: every counter of
// c is ≤ the corresponding counter of other, and at least one is strictly
// less.
func (c Clock) HappenedBefore(other Clock) bool {
	strictly := false
	for d, n := range c {
		o := other[d]
		if n > o {
			return false
		}
		if n < o {
			strictly = true
		}
	}
	for d, o := range other {
		if o > c[d] {
			strictly = true
		}
	}
	return strictly
}

// ConcurrentWith reports whether c and other are causally unrelated and not
// equal.
func (c Clock) ConcurrentWith(other Clock) bool {
	return !c.HappenedBefore(other) && !other.HappenedBefore(c) && !c.Equal(other)
}

// Equal reports pointwise equality, treating absent entries as zero.
func (c Clock) Equal(other Clock) bool {
	for d, n := range c {
		if n != other[d] {
			return false
		}
	}
	for d, o := range other {
		if o != c[d] {
			return false
		}
	}
	return true
}

// clone copies c, dropping zero entries.
func (c Clock) clone() Clock {
	out := make(Clock, len(c))
	for d, n := range c {
		if n > 0 {
			out[d] = n
		}
	}
	return out
}

// String renders the clock as {device:counter, ...} with sorted devices.
func (c Clock) String() string {
	devices := make([]string, 0, len(c))
	for d := range c {
		devices = append(devices, d.String())
	}
	sort.Strings(devices)

	var b strings.Builder
	b.WriteByte('{')
	for i, d := range devices {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s:%d", d, c[ids.DeviceID(d)])
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON serializes the clock as a {device: counter} mapping, dropping
// zero entries so equal clocks serialize identically.
func (c Clock) MarshalJSON() ([]byte, error) {
	m := make(map[string]uint64, len(c))
	for d, n := range c {
		if n > 0 {
			m[d.String()] = n
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON parses a {device: counter} mapping.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var m map[string]uint64
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("unmarshal vector clock: %w", err)
	}
	out := make(Clock, len(m))
	for d, n := range m {
		if n > 0 {
			out[ids.DeviceID(d)] = n
		}
	}
	*c = out
	return nil
}
