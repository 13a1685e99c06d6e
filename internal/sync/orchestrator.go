package sync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/vclock"
)

// Applier feeds pulled events into the local aggregate store. Sentinel
// errors classify failures the conflict machinery turns into ingestion
// conflicts.
type Applier interface {
	// ApplyRemote applies one remote event to local state.
	ApplyRemote(ctx context.Context, ev Event) error
}

// Sentinel errors an Applier returns for classifiable failures.
var (
	// ErrAggregateDeleted signals a remote modification of a locally
	// deleted aggregate.
	ErrAggregateDeleted = errors.New("aggregate is deleted locally")

	// ErrUnknownSchema signals an event kind or payload shape this build
	// does not understand.
	ErrUnknownSchema = errors.New("unknown event schema")

	// ErrMissingDependency signals an event whose predecessors are absent
	// from the local log.
	ErrMissingDependency = errors.New("event depends on unseen history")
)

// Result reports one completed sync round.
type Result struct {
	DeviceID          ids.DeviceID
	Status            Status
	Pushed            int
	Pulled            int
	ConflictsDetected int
	ConflictsDeferred int
	StartedAt         time.Time
	CompletedAt       time.Time
	FailureReason     ErrorCode
}

// Orchestrator drives sync rounds. One round per remote device runs at a
// time: the state machine rejects a second StartSync while a round holds
// IN_PROGRESS, so concurrent attempts fail fast.
type Orchestrator struct {
	states    StateRepository
	events    EventStore
	transport Transport
	conflicts ConflictRepository
	applier   Applier
	policy    Policy
	local     ids.DeviceID
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrchestrator wires a sync orchestrator. now is injected for tests.
func NewOrchestrator(
	states StateRepository,
	events EventStore,
	transport Transport,
	conflicts ConflictRepository,
	applier Applier,
	policy Policy,
	local ids.DeviceID,
	logger *zap.Logger,
	now func() time.Time,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		states:    states,
		events:    events,
		transport: transport,
		conflicts: conflicts,
		applier:   applier,
		policy:    policy,
		local:     local,
		logger:    logger,
		now:       now,
	}
}

// SyncWith runs one full round against the remote device: push local events
// the remote has not seen, pull remote events, detect and resolve conflicts,
// and commit the resulting sync state. A transport or persistence failure
// ends the round in FAILED without partial commit; pulled events apply only
// when they are conflict-free or resolved in the remote's favor.
func (o *Orchestrator) SyncWith(ctx context.Context, device ids.DeviceID) (*Result, error) {
	startedAt := o.now()

	state, err := o.loadState(ctx, device)
	if err != nil {
		return nil, err
	}
	if !state.CanSync() {
		return nil, &Error{
			Code:     ErrCodeStateViolation,
			Message:  "a sync round is already in progress or the device is offline",
			DeviceID: device.String(),
		}
	}

	state, err = state.StartSync()
	if err != nil {
		return nil, err
	}
	if err := o.states.Save(ctx, state); err != nil {
		return o.fail(ctx, state, startedAt, err)
	}

	o.logger.Info("sync round started",
		zap.String("device", device.String()),
		zap.String("remote_clock", state.RemoteClock.String()),
	)

	pushed, pushedClock, err := o.push(ctx, device, state.RemoteClock)
	if err != nil {
		return o.fail(ctx, state, startedAt, err)
	}

	pulled, detected, deferred, mergedClock, err := o.pull(ctx, device, pushedClock)
	if err != nil {
		return o.fail(ctx, state, startedAt, err)
	}

	completedAt := o.now()
	succeeded, err := state.MarkSyncSuccess(pushed, pulled, mergedClock, completedAt)
	if err != nil {
		return nil, err
	}
	if err := o.states.Save(ctx, succeeded); err != nil {
		return o.fail(ctx, state, startedAt, err)
	}

	o.logger.Info("sync round succeeded",
		zap.String("device", device.String()),
		zap.Int("pushed", pushed),
		zap.Int("pulled", pulled),
		zap.Int("conflicts", detected),
	)

	return &Result{
		DeviceID:          device,
		Status:            StatusSuccess,
		Pushed:            pushed,
		Pulled:            pulled,
		ConflictsDetected: detected,
		ConflictsDeferred: deferred,
		StartedAt:         startedAt,
		CompletedAt:       completedAt,
	}, nil
}

// loadState fetches or initializes the device's sync state.
func (o *Orchestrator) loadState(ctx context.Context, device ids.DeviceID) (State, error) {
	if device.String() == "" || device == o.local {
		return State{}, &Error{
			Code:     ErrCodeInvalidDevice,
			Message:  "cannot sync with this device",
			DeviceID: device.String(),
		}
	}
	existing, err := o.states.FindByDeviceID(ctx, device)
	if err != nil {
		return State{}, err
	}
	if existing == nil {
		return NewState(device), nil
	}
	return *existing, nil
}

// push streams local events the remote has not seen, counts the acks, and
// returns the clock the remote covers after the push.
func (o *Orchestrator) push(ctx context.Context, device ids.DeviceID, remoteClock vclock.Clock) (int, vclock.Clock, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	outgoing, err := o.events.EventsAhead(ctx, remoteClock)
	if err != nil {
		return 0, nil, err
	}
	if len(outgoing) == 0 {
		return 0, remoteClock, nil
	}

	acked, err := o.transport.SendEvents(ctx, device, outgoing)
	if err != nil {
		return 0, nil, err
	}

	ackedSet := make(map[ids.EventID]bool, len(acked))
	for _, id := range acked {
		ackedSet[id] = true
	}
	pushedClock := remoteClock
	for _, ev := range outgoing {
		if ackedSet[ev.ID] {
			pushedClock = pushedClock.Merge(ev.Clock)
		}
	}
	return len(acked), pushedClock, nil
}

// pull fetches remote events, detects and resolves conflicts, applies
// conflict-free and remote-favored events, and returns the merged remote
// clock.
func (o *Orchestrator) pull(ctx context.Context, device ids.DeviceID, sinceClock vclock.Clock) (pulled, detected, deferred int, mergedClock vclock.Clock, err error) {
	mergedClock = sinceClock

	if err = ctx.Err(); err != nil {
		return 0, 0, 0, nil, err
	}

	incoming, err := o.transport.ReceiveEvents(ctx, device, sinceClock)
	if err != nil {
		return 0, 0, 0, nil, err
	}

	var buffer []*Conflict
	for _, ev := range incoming {
		if err = ctx.Err(); err != nil {
			return 0, 0, 0, nil, err
		}
		// Events this device produced echo back through multi-hop relays;
		// the local log already has them.
		if ev.DeviceID == o.local {
			continue
		}

		conflict, applyErr := o.ingest(ctx, device, ev)
		if applyErr != nil {
			return 0, 0, 0, nil, applyErr
		}
		if conflict != nil {
			buffer = append(buffer, conflict)
		} else {
			pulled++
		}
		mergedClock = mergedClock.Merge(ev.Clock)
	}

	detected = len(buffer)
	if detected == 0 {
		return pulled, 0, 0, mergedClock, nil
	}

	resolved, err := o.policy.ResolveAll(buffer, o.now())
	if err != nil {
		return 0, 0, 0, nil, err
	}

	for _, c := range resolved {
		switch {
		case c.Resolution != nil && *c.Resolution == ResolutionAcceptedRemote:
			ev := eventByID(incoming, c.RemoteEventID)
			if applyErr := o.applier.ApplyRemote(ctx, ev); applyErr != nil &&
				!errors.Is(applyErr, ErrAggregateDeleted) {
				return 0, 0, 0, nil, applyErr
			}
			pulled++
		case c.Resolution != nil && *c.Resolution == ResolutionDeferred:
			deferred++
		}
		if err := o.conflicts.Save(ctx, c); err != nil {
			return 0, 0, 0, nil, err
		}
	}

	return pulled, detected, deferred, mergedClock, nil
}

// ingest feeds one remote event into local state, returning a conflict when
// it cannot apply cleanly.
func (o *Orchestrator) ingest(ctx context.Context, device ids.DeviceID, ev Event) (*Conflict, error) {
	localVersion, err := o.events.LatestVersion(ctx, ev.AggregateID)
	if err != nil {
		return nil, err
	}

	params := DetectParams{
		RemoteEventID:   ev.ID,
		AggregateID:     ev.AggregateID,
		LocalVersion:    localVersion,
		RemoteVersion:   ev.Version,
		RemoteClock:     ev.Clock,
		RemoteTimestamp: ev.Timestamp,
		LocalDevice:     o.local,
		RemoteDevice:    device,
	}

	if localVersion > 0 {
		local, err := o.events.EventsSinceVersion(ctx, ev.AggregateID, localVersion-1)
		if err != nil {
			return nil, err
		}
		if len(local) > 0 {
			last := local[len(local)-1]
			params.LocalEventID = last.ID
			params.LocalClock = last.Clock
			params.LocalTimestamp = last.Timestamp
		}
	}

	now := o.now()
	if conflict := Detect(params, now); conflict != nil {
		return conflict, nil
	}

	// Causally ordered: a remote event the local state already covers is
	// stale and skipped, anything else applies.
	if params.LocalClock != nil && ev.Clock.HappenedBefore(params.LocalClock) {
		return nil, nil
	}

	applyErr := o.applier.ApplyRemote(ctx, ev)
	switch {
	case applyErr == nil:
		return nil, nil
	case errors.Is(applyErr, ErrAggregateDeleted):
		return NewIngestionConflict(ConflictDeletedModified, params, now), nil
	case errors.Is(applyErr, ErrUnknownSchema):
		return NewIngestionConflict(ConflictSchemaMismatch, params, now), nil
	case errors.Is(applyErr, ErrMissingDependency):
		return NewIngestionConflict(ConflictMissingDependency, params, now), nil
	default:
		return nil, applyErr
	}
}

// fail ends the round in FAILED, preserving whatever state was already
// committed. Cancellation and timeouts surface as network errors.
func (o *Orchestrator) fail(ctx context.Context, state State, startedAt time.Time, cause error) (*Result, error) {
	completedAt := o.now()

	failed, terr := state.MarkSyncFailed(completedAt)
	if terr == nil {
		// Persist with a background-derived context: the round's context
		// may already be canceled, and losing the FAILED transition would
		// leave the device stuck in IN_PROGRESS.
		saveCtx := context.WithoutCancel(ctx)
		if err := o.states.Save(saveCtx, failed); err != nil {
			o.logger.Error("failed to persist sync failure", zap.Error(err))
		}
	}

	reason := ErrCodeNetwork
	if CodeOf(cause) != "" {
		reason = CodeOf(cause)
	}

	o.logger.Warn("sync round failed",
		zap.String("device", state.DeviceID.String()),
		zap.Error(cause),
	)

	return &Result{
		DeviceID:      state.DeviceID,
		Status:        StatusFailed,
		StartedAt:     startedAt,
		CompletedAt:   completedAt,
		FailureReason: reason,
	}, cause
}

// eventByID finds a pulled event by its envelope ID.
func eventByID(events []Event, id ids.EventID) Event {
	for _, ev := range events {
		if ev.ID == id {
			return ev
		}
	}
	return Event{}
}
