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
	remoteDev = ids.DeviceID("device-b")
	baseTime  = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

func inState(t *testing.T, status Status) State {
	t.Helper()
	s := NewState(remoteDev)
	switch status {
	case StatusNeverSynced:
		return s
	case StatusInProgress:
		s, err := s.StartSync()
		require.NoError(t, err)
		return s
	case StatusSuccess:
		s, err := s.StartSync()
		require.NoError(t, err)
		s, err = s.MarkSyncSuccess(1, 1, vclock.New(), baseTime)
		require.NoError(t, err)
		return s
	case StatusFailed:
		s, err := s.StartSync()
		require.NoError(t, err)
		s, err = s.MarkSyncFailed(baseTime)
		require.NoError(t, err)
		return s
	case StatusOffline:
		return s.MarkOffline()
	}
	t.Fatalf("unknown status %s", status)
	return s
}

func TestState_TransitionTable(t *testing.T) {
	// Every cell of the transition table, including the illegal ones.
	statuses := []Status{StatusNeverSynced, StatusInProgress, StatusSuccess, StatusFailed, StatusOffline}

	startable := map[Status]bool{StatusNeverSynced: true, StatusSuccess: true, StatusFailed: true}
	for _, from := range statuses {
		s := inState(t, from)

		next, err := s.StartSync()
		if startable[from] {
			require.NoError(t, err, "startSync from %s", from)
			assert.Equal(t, StatusInProgress, next.Status)
		} else {
			assert.Equal(t, ErrCodeStateViolation, CodeOf(err), "startSync from %s", from)
		}
	}

	for _, from := range statuses {
		s := inState(t, from)

		_, successErr := s.MarkSyncSuccess(0, 0, vclock.New(), baseTime)
		_, failErr := s.MarkSyncFailed(baseTime)
		if from == StatusInProgress {
			assert.NoError(t, successErr)
			assert.NoError(t, failErr)
		} else {
			assert.Equal(t, ErrCodeStateViolation, CodeOf(successErr), "markSyncSuccess from %s", from)
			assert.Equal(t, ErrCodeStateViolation, CodeOf(failErr), "markSyncFailed from %s", from)
		}

		// markOffline is legal from anywhere.
		assert.Equal(t, StatusOffline, s.MarkOffline().Status)

		_, onlineErr := s.MarkOnline()
		if from == StatusOffline {
			assert.NoError(t, onlineErr)
		} else {
			assert.Equal(t, ErrCodeStateViolation, CodeOf(onlineErr), "markOnline from %s", from)
		}
	}
}

func TestState_MarkOnlineDestination(t *testing.T) {
	// Offline with no completed round returns to NEVER_SYNCED.
	fresh := NewState(remoteDev).MarkOffline()
	back, err := fresh.MarkOnline()
	require.NoError(t, err)
	assert.Equal(t, StatusNeverSynced, back.Status)

	// Offline after a completed round returns to SUCCESS.
	synced := inState(t, StatusSuccess).MarkOffline()
	back, err = synced.MarkOnline()
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, back.Status)
}

func TestState_MarkSyncSuccess(t *testing.T) {
	s := inState(t, StatusInProgress)
	s, err := s.IncrementPendingChanges(3)
	require.NoError(t, err)

	remote := vclock.New().Increment(remoteDev)
	s, err = s.MarkSyncSuccess(2, 1, remote, baseTime)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, s.Status)
	require.NotNil(t, s.LastSyncAt)
	assert.Equal(t, baseTime, *s.LastSyncAt)
	require.NotNil(t, s.LastSuccessfulPush)
	assert.Equal(t, baseTime, *s.LastSuccessfulPush)
	require.NotNil(t, s.LastSuccessfulPull)
	assert.Equal(t, baseTime, *s.LastSuccessfulPull)
	assert.True(t, s.RemoteClock.Equal(remote), "remote clock merged")
	assert.Zero(t, s.PendingChanges)
	assert.NoError(t, s.Validate())
}

func TestState_MarkSyncSuccessWithoutProgressKeepsTimestamps(t *testing.T) {
	s := inState(t, StatusInProgress)
	s, err := s.MarkSyncSuccess(0, 0, vclock.New(), baseTime)
	require.NoError(t, err)

	assert.Nil(t, s.LastSuccessfulPush, "no push happened")
	assert.Nil(t, s.LastSuccessfulPull, "no pull happened")
	require.NotNil(t, s.LastSyncAt)
}

func TestState_CanSyncNeedsSync(t *testing.T) {
	assert.True(t, inState(t, StatusNeverSynced).CanSync())
	assert.True(t, inState(t, StatusSuccess).CanSync())
	assert.True(t, inState(t, StatusFailed).CanSync())
	assert.False(t, inState(t, StatusInProgress).CanSync())
	assert.False(t, inState(t, StatusOffline).CanSync())

	assert.False(t, inState(t, StatusSuccess).NeedsSync(), "no pending changes")
	assert.True(t, inState(t, StatusFailed).NeedsSync(), "failed rounds retry")
	assert.False(t, inState(t, StatusOffline).NeedsSync())

	s, err := inState(t, StatusSuccess).IncrementPendingChanges(1)
	require.NoError(t, err)
	assert.True(t, s.NeedsSync())
}

func TestState_IsStale(t *testing.T) {
	threshold := time.Hour

	assert.True(t, NewState(remoteDev).IsStale(threshold, baseTime), "never synced is always stale")

	s := inState(t, StatusSuccess)
	assert.False(t, s.IsStale(threshold, baseTime.Add(30*time.Minute)))
	assert.True(t, s.IsStale(threshold, baseTime.Add(2*time.Hour)))
}

func TestState_IncrementPendingChanges(t *testing.T) {
	s := NewState(remoteDev)

	_, err := s.IncrementPendingChanges(0)
	assert.Equal(t, ErrCodePendingOverflow, CodeOf(err))
	_, err = s.IncrementPendingChanges(-5)
	assert.Equal(t, ErrCodePendingOverflow, CodeOf(err))

	s, err = s.IncrementPendingChanges(MaxPendingChanges + 100)
	require.NoError(t, err)
	assert.Equal(t, MaxPendingChanges, s.PendingChanges, "capped at the bound")
}

func TestState_ValidateInvariants(t *testing.T) {
	s := inState(t, StatusSuccess)
	assert.NoError(t, s.Validate())

	// Push timestamp more than the tolerance ahead of lastSyncAt.
	ahead := baseTime.Add(2 * time.Second)
	s.LastSuccessfulPush = &ahead
	assert.Equal(t, ErrCodeStateViolation, CodeOf(s.Validate()))

	// Within tolerance passes.
	within := baseTime.Add(500 * time.Millisecond)
	s.LastSuccessfulPush = &within
	assert.NoError(t, s.Validate())
}
