package vclock

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamiazya/scopes/internal/ids"
)

const (
	devA = ids.DeviceID("device-a")
	devB = ids.DeviceID("device-b")
	devC = ids.DeviceID("device-c")
)

func clockOf(pairs map[ids.DeviceID]uint64) Clock {
	c := New()
	for d, n := range pairs {
		c[d] = n
	}
	return c
}

func TestClock_Increment(t *testing.T) {
	c := New()
	c1 := c.Increment(devA)
	c2 := c1.Increment(devA)

	assert.Equal(t, uint64(0), c.Counter(devA), "original clock unchanged")
	assert.Equal(t, uint64(1), c1.Counter(devA))
	assert.Equal(t, uint64(2), c2.Counter(devA))
	assert.Equal(t, uint64(0), c2.Counter(devB), "missing entries are zero")
}

func TestClock_HappenedBefore(t *testing.T) {
	tests := []struct {
		name string
		a, b Clock
		want bool
	}{
		{
			name: "strictly dominated",
			a:    clockOf(map[ids.DeviceID]uint64{devA: 3}),
			b:    clockOf(map[ids.DeviceID]uint64{devA: 5, devB: 2}),
			want: true,
		},
		{
			name: "equal clocks",
			a:    clockOf(map[ids.DeviceID]uint64{devA: 3}),
			b:    clockOf(map[ids.DeviceID]uint64{devA: 3}),
			want: false,
		},
		{
			name: "concurrent",
			a:    clockOf(map[ids.DeviceID]uint64{devA: 5, devB: 2}),
			b:    clockOf(map[ids.DeviceID]uint64{devA: 3, devB: 4}),
			want: false,
		},
		{
			name: "empty before non-empty",
			a:    New(),
			b:    clockOf(map[ids.DeviceID]uint64{devA: 1}),
			want: true,
		},
		{
			name: "empty vs empty",
			a:    New(),
			b:    New(),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.HappenedBefore(tt.b))
		})
	}
}

func TestClock_Trichotomy(t *testing.T) {
	// For any two clocks, exactly one of: a<b, b<a, concurrent, equal.
	clocks := []Clock{
		New(),
		clockOf(map[ids.DeviceID]uint64{devA: 1}),
		clockOf(map[ids.DeviceID]uint64{devA: 3}),
		clockOf(map[ids.DeviceID]uint64{devB: 2}),
		clockOf(map[ids.DeviceID]uint64{devA: 5, devB: 2}),
		clockOf(map[ids.DeviceID]uint64{devA: 3, devB: 4}),
		clockOf(map[ids.DeviceID]uint64{devA: 3, devB: 4, devC: 1}),
	}

	for i, a := range clocks {
		for j, b := range clocks {
			count := 0
			if a.HappenedBefore(b) {
				count++
			}
			if b.HappenedBefore(a) {
				count++
			}
			if a.ConcurrentWith(b) {
				count++
			}
			if a.Equal(b) {
				count++
			}
			assert.Equal(t, 1, count, "clocks %d and %d must satisfy exactly one relation", i, j)
		}
	}
}

func TestClock_MergeLaws(t *testing.T) {
	a := clockOf(map[ids.DeviceID]uint64{devA: 5, devB: 2})
	b := clockOf(map[ids.DeviceID]uint64{devA: 3, devB: 4})
	c := clockOf(map[ids.DeviceID]uint64{devC: 7})

	assert.True(t, a.Merge(b).Equal(b.Merge(a)), "merge is commutative")
	assert.True(t, a.Merge(b).Merge(c).Equal(a.Merge(b.Merge(c))), "merge is associative")
	assert.True(t, a.Merge(a).Equal(a), "merge is idempotent")

	merged := a.Merge(b)
	assert.Equal(t, uint64(5), merged.Counter(devA))
	assert.Equal(t, uint64(4), merged.Counter(devB))
}

func TestClock_MergeDominates(t *testing.T) {
	a := clockOf(map[ids.DeviceID]uint64{devA: 5, devB: 2})
	b := clockOf(map[ids.DeviceID]uint64{devA: 3, devB: 4})
	merged := a.Merge(b)

	assert.True(t, a.HappenedBefore(merged))
	assert.True(t, b.HappenedBefore(merged))
}

func TestClock_JSONRoundTrip(t *testing.T) {
	original := clockOf(map[ids.DeviceID]uint64{devA: 5, devB: 2})

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Clock
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, original.Equal(decoded))
}

func TestClock_JSONDropsZeroEntries(t *testing.T) {
	c := clockOf(map[ids.DeviceID]uint64{devA: 1, devB: 0})
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"device-a":1}`, string(data))
}

func TestClock_String(t *testing.T) {
	c := clockOf(map[ids.DeviceID]uint64{devB: 2, devA: 5})
	assert.Equal(t, "{device-a:5, device-b:2}", c.String(), "devices render sorted")
}
