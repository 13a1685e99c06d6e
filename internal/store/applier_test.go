package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/scope"
	syncpkg "github.com/kamiazya/scopes/internal/sync"
	"github.com/kamiazya/scopes/internal/vclock"
)

// createScopeWithEvent saves a scope into a store's projection and appends
// its creation event, the way the application layer does.
func createScopeWithEvent(t *testing.T, s *Store, device ids.DeviceID, title string) *scope.Scope {
	t.Helper()
	ctx := context.Background()

	sc, err := scope.New(ids.NewScopeID(), nil, title, "", fixedNow)
	require.NoError(t, err)
	require.NoError(t, s.Scopes().Save(ctx, sc))

	clock := vclock.New().Increment(device)
	for _, ev := range sc.ToEvents(ids.NewEventID(), clock) {
		env, err := scope.EncodeEvent(ev, device)
		require.NoError(t, err)
		require.NoError(t, s.Events().Append(ctx, []syncpkg.Event{env}))
	}
	return sc
}

func TestScopeApplier_AppliesRemoteCreation(t *testing.T) {
	local := openTestStore(t)
	ctx := context.Background()

	remoteScope, err := scope.New(ids.NewScopeID(), nil, "From remote", "", fixedNow)
	require.NoError(t, err)
	env, err := scope.EncodeEvent(remoteScope.ToEvents(ids.NewEventID(), vclock.New().Increment(remoteDev))[0], remoteDev)
	require.NoError(t, err)

	require.NoError(t, local.Applier().ApplyRemote(ctx, env))

	got, err := local.Scopes().FindByID(ctx, remoteScope.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "From remote", got.Title)
	assert.Equal(t, int64(1), got.Version)

	// The event landed in the local log too.
	latest, err := local.Events().LatestVersion(ctx, remoteScope.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), latest)
}

func TestScopeApplier_ClassifiesFailures(t *testing.T) {
	local := openTestStore(t)
	ctx := context.Background()

	// An update for an aggregate with no local history is a missing
	// dependency.
	orphan := scope.TitleChanged{
		EventHeader: scope.EventHeader{
			EventID: ids.NewEventID(),
			ScopeID: ids.NewScopeID(),
			Version: 2,
			Clock:   vclock.New().Increment(remoteDev),
			At:      fixedNow,
		},
		Title: "orphan",
	}
	env, err := scope.EncodeEvent(orphan, remoteDev)
	require.NoError(t, err)
	assert.ErrorIs(t, local.Applier().ApplyRemote(ctx, env), syncpkg.ErrMissingDependency)

	// An unknown kind is a schema mismatch.
	env.Kind = "ScopeRenamedAllWrong"
	assert.ErrorIs(t, local.Applier().ApplyRemote(ctx, env), syncpkg.ErrUnknownSchema)

	// An update to a scope whose history exists but whose projection is
	// gone is a deleted-modified conflict.
	sc := createScopeWithEvent(t, local, localDev, "Doomed")
	deleted := scope.Deleted{
		EventHeader: scope.EventHeader{
			EventID: ids.NewEventID(),
			ScopeID: sc.ID,
			Version: 2,
			Clock:   vclock.New().Increment(localDev).Increment(localDev),
			At:      fixedNow,
		},
	}
	denv, err := scope.EncodeEvent(deleted, localDev)
	require.NoError(t, err)
	require.NoError(t, local.Events().Append(ctx, []syncpkg.Event{denv}))
	require.NoError(t, local.Scopes().Delete(ctx, sc.ID))

	late := scope.TitleChanged{
		EventHeader: scope.EventHeader{
			EventID: ids.NewEventID(),
			ScopeID: sc.ID,
			Version: 3,
			Clock:   vclock.New().Increment(remoteDev),
			At:      fixedNow,
		},
		Title: "too late",
	}
	lenv, err := scope.EncodeEvent(late, remoteDev)
	require.NoError(t, err)
	assert.ErrorIs(t, local.Applier().ApplyRemote(ctx, lenv), syncpkg.ErrAggregateDeleted)
}

func TestSyncRound_TwoStores(t *testing.T) {
	// Two devices, each with its own database; device A syncs against
	// device B's store through the local transport.
	storeA := openTestStore(t)
	storeB := openTestStore(t)
	ctx := context.Background()

	mine := createScopeWithEvent(t, storeA, localDev, "Mine")
	theirs := createScopeWithEvent(t, storeB, remoteDev, "Theirs")

	orch := syncpkg.NewOrchestrator(
		storeA.SyncStates(),
		storeA.Events(),
		NewLocalTransport(storeB),
		storeA.Conflicts(),
		storeA.Applier(),
		syncpkg.Policy{Strategy: syncpkg.StrategyManual},
		localDev,
		zap.NewNop(),
		func() time.Time { return fixedNow.Add(time.Minute) },
	)

	result, err := orch.SyncWith(ctx, remoteDev)
	require.NoError(t, err)
	assert.Equal(t, syncpkg.StatusSuccess, result.Status)
	assert.Equal(t, 1, result.Pushed)
	assert.Equal(t, 1, result.Pulled)
	assert.Zero(t, result.ConflictsDetected)

	// A's projection now carries B's scope.
	got, err := storeA.Scopes().FindByID(ctx, theirs.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Theirs", got.Title)

	// B's log carries A's event, ready for B's own round.
	latest, err := storeB.Events().LatestVersion(ctx, mine.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), latest)

	// The sync state records the merged remote clock.
	state, err := storeA.SyncStates().FindByDeviceID(ctx, remoteDev)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint64(1), state.RemoteClock.Counter(remoteDev))
	assert.NoError(t, state.Validate())

	// A second round with nothing new pushes and pulls nothing.
	result, err = orch.SyncWith(ctx, remoteDev)
	require.NoError(t, err)
	assert.Zero(t, result.Pushed)
	assert.Zero(t, result.Pulled)
}

func TestSyncRound_SecondRoundAfterRemoteChange(t *testing.T) {
	storeA := openTestStore(t)
	storeB := openTestStore(t)
	ctx := context.Background()

	orch := syncpkg.NewOrchestrator(
		storeA.SyncStates(),
		storeA.Events(),
		NewLocalTransport(storeB),
		storeA.Conflicts(),
		storeA.Applier(),
		syncpkg.Policy{Strategy: syncpkg.StrategyManual},
		localDev,
		zap.NewNop(),
		func() time.Time { return fixedNow.Add(time.Minute) },
	)

	_, err := orch.SyncWith(ctx, remoteDev)
	require.NoError(t, err)

	theirs := createScopeWithEvent(t, storeB, remoteDev, "Later arrival")

	result, err := orch.SyncWith(ctx, remoteDev)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pulled)

	got, err := storeA.Scopes().FindByID(ctx, theirs.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
}
