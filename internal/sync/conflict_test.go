package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/vclock"
)

var (
	devA = ids.DeviceID("A")
	devB = ids.DeviceID("B")
)

func clockOf(pairs map[ids.DeviceID]uint64) vclock.Clock {
	c := vclock.New()
	for d, n := range pairs {
		c[d] = n
	}
	return c
}

func detectParams(local, remote vclock.Clock, localVersion, remoteVersion int64) DetectParams {
	return DetectParams{
		LocalEventID:  ids.NewEventID(),
		RemoteEventID: ids.NewEventID(),
		AggregateID:   "scope-1",
		LocalVersion:  localVersion,
		RemoteVersion: remoteVersion,
		LocalClock:    local,
		RemoteClock:   remote,
		LocalDevice:   devA,
		RemoteDevice:  devB,
	}
}

func TestDetect_ConcurrentModification(t *testing.T) {
	local := clockOf(map[ids.DeviceID]uint64{devA: 5, devB: 2})
	remote := clockOf(map[ids.DeviceID]uint64{devA: 3, devB: 4})

	c := Detect(detectParams(local, remote, 2, 3), baseTime)
	require.NotNil(t, c)

	assert.Equal(t, ConflictConcurrentModification, c.Type)
	assert.Equal(t, SeverityMedium, c.ConflictSeverity())
	assert.Equal(t, ResolutionDeferred, c.SuggestResolution())
	assert.True(t, c.IsTrueConflict())
	assert.True(t, c.IsPending())
	assert.Equal(t, baseTime, c.DetectedAt)
}

func TestDetect_CausalOrderIsNoConflict(t *testing.T) {
	local := clockOf(map[ids.DeviceID]uint64{devA: 3})
	remote := clockOf(map[ids.DeviceID]uint64{devA: 5, devB: 2})

	assert.Nil(t, Detect(detectParams(local, remote, 2, 3), baseTime))
	assert.Nil(t, Detect(detectParams(remote, local, 3, 2), baseTime), "either direction")
}

func TestDetect_VersionMismatch(t *testing.T) {
	// Equal clocks with diverged versions.
	clock := clockOf(map[ids.DeviceID]uint64{devA: 3})

	c := Detect(detectParams(clock, clock, 2, 5), baseTime)
	require.NotNil(t, c)
	assert.Equal(t, ConflictVersionMismatch, c.Type)
	assert.Equal(t, SeverityHigh, c.ConflictSeverity(), "delta above one is high")

	small := Detect(detectParams(clock, clock, 2, 3), baseTime)
	require.NotNil(t, small)
	assert.Equal(t, SeverityLow, small.ConflictSeverity(), "delta of one is low")
}

func TestDetect_EqualClocksSameVersionIsNoConflict(t *testing.T) {
	clock := clockOf(map[ids.DeviceID]uint64{devA: 3})
	assert.Nil(t, Detect(detectParams(clock, clock, 2, 2), baseTime))
}

func TestConflict_SuggestResolutionByCausality(t *testing.T) {
	behind := clockOf(map[ids.DeviceID]uint64{devA: 1})
	aheadC := clockOf(map[ids.DeviceID]uint64{devA: 4})

	// Suggestion follows causal order even on pre-classified conflicts.
	c := NewIngestionConflict(ConflictDeletedModified, detectParams(behind, aheadC, 1, 4), baseTime)
	assert.Equal(t, ResolutionAcceptedRemote, c.SuggestResolution())

	c = NewIngestionConflict(ConflictDeletedModified, detectParams(aheadC, behind, 4, 1), baseTime)
	assert.Equal(t, ResolutionKeptLocal, c.SuggestResolution())
}

func TestConflict_Severity(t *testing.T) {
	concurrentL := clockOf(map[ids.DeviceID]uint64{devA: 2})
	concurrentR := clockOf(map[ids.DeviceID]uint64{devB: 2})

	missing := NewIngestionConflict(ConflictMissingDependency, detectParams(concurrentL, concurrentR, 0, 4), baseTime)
	assert.Equal(t, SeverityCritical, missing.ConflictSeverity())

	deleted := NewIngestionConflict(ConflictDeletedModified, detectParams(concurrentL, concurrentR, 1, 2), baseTime)
	assert.Equal(t, SeverityLow, deleted.ConflictSeverity())

	schema := NewIngestionConflict(ConflictSchemaMismatch, detectParams(concurrentL, concurrentR, 1, 2), baseTime)
	assert.Equal(t, SeverityLow, schema.ConflictSeverity())
}

func TestConflict_IsTrueConflict(t *testing.T) {
	ordered := clockOf(map[ids.DeviceID]uint64{devA: 1})
	orderedAhead := clockOf(map[ids.DeviceID]uint64{devA: 3})

	// A concurrent-modification record whose clocks are actually ordered is
	// a stale classification, not a true conflict.
	stale := NewIngestionConflict(ConflictConcurrentModification, detectParams(ordered, orderedAhead, 1, 3), baseTime)
	assert.False(t, stale.IsTrueConflict())

	// Structural conflict types are always true conflicts.
	missing := NewIngestionConflict(ConflictMissingDependency, detectParams(ordered, orderedAhead, 1, 3), baseTime)
	assert.True(t, missing.IsTrueConflict())
}

func TestConflict_ResolveLifecycle(t *testing.T) {
	local := clockOf(map[ids.DeviceID]uint64{devA: 5, devB: 2})
	remote := clockOf(map[ids.DeviceID]uint64{devA: 3, devB: 4})
	c := Detect(detectParams(local, remote, 2, 3), baseTime)
	require.NotNil(t, c)

	resolvedAt := baseTime.Add(time.Minute)
	resolved, err := c.Resolve(ResolutionKeptLocal, resolvedAt)
	require.NoError(t, err)

	assert.True(t, c.IsPending(), "original is untouched")
	assert.False(t, resolved.IsPending())
	assert.Equal(t, ResolutionKeptLocal, *resolved.Resolution)
	assert.Equal(t, resolvedAt, *resolved.ResolvedAt)
	assert.NoError(t, resolved.Validate())

	// Resolving again is rejected.
	_, err = resolved.Resolve(ResolutionAcceptedRemote, resolvedAt)
	assert.Equal(t, ErrCodeConflictResolution, CodeOf(err))

	deferred, err := c.Defer(resolvedAt)
	require.NoError(t, err)
	assert.Equal(t, ResolutionDeferred, *deferred.Resolution)

	merged, err := c.Merge(resolvedAt)
	require.NoError(t, err)
	assert.Equal(t, ResolutionMerged, *merged.Resolution)
}

func TestConflict_ValidateInvariants(t *testing.T) {
	local := clockOf(map[ids.DeviceID]uint64{devA: 2})
	remote := clockOf(map[ids.DeviceID]uint64{devB: 2})
	c := Detect(detectParams(local, remote, 1, 1), baseTime)
	require.NotNil(t, c)
	assert.NoError(t, c.Validate())

	// Resolution without a timestamp violates co-presence.
	bad := *c
	res := ResolutionKeptLocal
	bad.Resolution = &res
	assert.Equal(t, ErrCodeConflictResolution, CodeOf(bad.Validate()))

	// Resolution more than the tolerance before detection.
	early := baseTime.Add(-2 * time.Second)
	bad.ResolvedAt = &early
	assert.Equal(t, ErrCodeConflictResolution, CodeOf(bad.Validate()))

	// Within the skew tolerance passes.
	within := baseTime.Add(-500 * time.Millisecond)
	bad.ResolvedAt = &within
	assert.NoError(t, bad.Validate())
}
