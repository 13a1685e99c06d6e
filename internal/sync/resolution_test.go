package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamiazya/scopes/internal/ids"
)

func concurrentConflict(t *testing.T) *Conflict {
	t.Helper()
	local := clockOf(map[ids.DeviceID]uint64{devA: 5, devB: 2})
	remote := clockOf(map[ids.DeviceID]uint64{devA: 3, devB: 4})
	c := Detect(detectParams(local, remote, 2, 3), baseTime)
	require.NotNil(t, c)
	return c
}

func resolveOne(t *testing.T, p Policy, c *Conflict) Resolution {
	t.Helper()
	out, err := p.ResolveAll([]*Conflict{c}, baseTime.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Resolution)
	return *out[0].Resolution
}

func TestPolicy_KeepLocalKeepRemoteManual(t *testing.T) {
	c := concurrentConflict(t)

	assert.Equal(t, ResolutionKeptLocal, resolveOne(t, Policy{Strategy: StrategyKeepLocal}, c))
	assert.Equal(t, ResolutionAcceptedRemote, resolveOne(t, Policy{Strategy: StrategyKeepRemote}, c))
	assert.Equal(t, ResolutionDeferred, resolveOne(t, Policy{Strategy: StrategyManual}, c))
}

func TestPolicy_LastWriteWins(t *testing.T) {
	c := concurrentConflict(t)
	c.LocalTimestamp = baseTime.Add(time.Minute)
	c.RemoteTimestamp = baseTime

	assert.Equal(t, ResolutionKeptLocal, resolveOne(t, Policy{Strategy: StrategyLastWriteWins}, c))

	c = concurrentConflict(t)
	c.LocalTimestamp = baseTime
	c.RemoteTimestamp = baseTime.Add(time.Minute)
	assert.Equal(t, ResolutionAcceptedRemote, resolveOne(t, Policy{Strategy: StrategyLastWriteWins}, c))
}

func TestPolicy_LastWriteWinsTiebreak(t *testing.T) {
	// Exact timestamp ties break by device ID lexicographic order, so both
	// devices decide identically.
	c := concurrentConflict(t)
	c.LocalTimestamp = baseTime
	c.RemoteTimestamp = baseTime
	c.LocalDevice = ids.DeviceID("zeta")
	c.RemoteDevice = ids.DeviceID("alpha")
	assert.Equal(t, ResolutionKeptLocal, resolveOne(t, Policy{Strategy: StrategyLastWriteWins}, c))

	c = concurrentConflict(t)
	c.LocalTimestamp = baseTime
	c.RemoteTimestamp = baseTime
	c.LocalDevice = ids.DeviceID("alpha")
	c.RemoteDevice = ids.DeviceID("zeta")
	assert.Equal(t, ResolutionAcceptedRemote, resolveOne(t, Policy{Strategy: StrategyLastWriteWins}, c))
}

func TestPolicy_Merge(t *testing.T) {
	mergeable := Policy{
		Strategy:  StrategyMerge,
		Mergeable: func(aggregateID string) bool { return aggregateID == "scope-1" },
	}

	c := concurrentConflict(t)
	assert.Equal(t, ResolutionMerged, resolveOne(t, mergeable, c))

	c = concurrentConflict(t)
	c.AggregateID = "scope-2"
	assert.Equal(t, ResolutionDeferred, resolveOne(t, mergeable, c), "non-mergeable aggregates defer")

	c = concurrentConflict(t)
	assert.Equal(t, ResolutionDeferred, resolveOne(t, Policy{Strategy: StrategyMerge}, c),
		"nil predicate treats nothing as mergeable")
}

func TestPolicy_ResolveAllSkipsResolved(t *testing.T) {
	c := concurrentConflict(t)
	already, err := c.Resolve(ResolutionKeptLocal, baseTime)
	require.NoError(t, err)

	out, err := Policy{Strategy: StrategyKeepRemote}.ResolveAll([]*Conflict{already, c}, baseTime.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, ResolutionKeptLocal, *out[0].Resolution, "already-resolved conflicts pass through")
	assert.Equal(t, ResolutionAcceptedRemote, *out[1].Resolution)
}
