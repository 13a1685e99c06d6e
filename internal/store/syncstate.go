package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/kamiazya/scopes/internal/ids"
	syncpkg "github.com/kamiazya/scopes/internal/sync"
)

// SyncStateRepository implements sync.StateRepository over the store.
type SyncStateRepository struct {
	s *Store
}

// SyncStates returns the sync-state repository view of the store.
func (s *Store) SyncStates() *SyncStateRepository {
	return &SyncStateRepository{s: s}
}

// FindByDeviceID returns the device's state, nil when never seen.
func (r *SyncStateRepository) FindByDeviceID(ctx context.Context, device ids.DeviceID) (*syncpkg.State, error) {
	var (
		state     syncpkg.State
		rawDevice string
		lastSync  sql.NullString
		rawClock  string
		lastPush  sql.NullString
		lastPull  sql.NullString
		rawStatus string
	)
	err := r.s.db.QueryRowContext(ctx, `
		SELECT device_id, last_sync_at, remote_vector_clock, last_successful_push, last_successful_pull, status, pending_changes
		FROM sync_states WHERE device_id = ?
	`, device.String()).Scan(&rawDevice, &lastSync, &rawClock, &lastPush, &lastPull, &rawStatus, &state.PendingChanges)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find sync state", err)
	}

	state.DeviceID = ids.DeviceID(rawDevice)
	state.Status = syncpkg.Status(rawStatus)
	if err := json.Unmarshal([]byte(rawClock), &state.RemoteClock); err != nil {
		return nil, wrapErr("find sync state", err)
	}
	if state.LastSyncAt, err = parseTimePtr(lastSync); err != nil {
		return nil, wrapErr("find sync state", err)
	}
	if state.LastSuccessfulPush, err = parseTimePtr(lastPush); err != nil {
		return nil, wrapErr("find sync state", err)
	}
	if state.LastSuccessfulPull, err = parseTimePtr(lastPull); err != nil {
		return nil, wrapErr("find sync state", err)
	}
	return &state, nil
}

// Save upserts the device's state.
func (r *SyncStateRepository) Save(ctx context.Context, state syncpkg.State) error {
	clockJSON, err := json.Marshal(state.RemoteClock)
	if err != nil {
		return wrapErr("save sync state", err)
	}
	_, err = r.s.db.ExecContext(ctx, `
		INSERT INTO sync_states (device_id, last_sync_at, remote_vector_clock, last_successful_push, last_successful_pull, status, pending_changes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			last_sync_at = excluded.last_sync_at,
			remote_vector_clock = excluded.remote_vector_clock,
			last_successful_push = excluded.last_successful_push,
			last_successful_pull = excluded.last_successful_pull,
			status = excluded.status,
			pending_changes = excluded.pending_changes
	`,
		state.DeviceID.String(),
		formatTimePtr(state.LastSyncAt),
		string(clockJSON),
		formatTimePtr(state.LastSuccessfulPush),
		formatTimePtr(state.LastSuccessfulPull),
		string(state.Status),
		state.PendingChanges,
	)
	if err != nil {
		return wrapErr("save sync state", err)
	}
	return nil
}

// ConflictRepository implements sync.ConflictRepository over the store.
type ConflictRepository struct {
	s *Store
}

// Conflicts returns the conflict repository view of the store.
func (s *Store) Conflicts() *ConflictRepository {
	return &ConflictRepository{s: s}
}

const conflictColumns = `id, local_event_id, remote_event_id, aggregate_id, local_version, remote_version,
	local_vector_clock, remote_vector_clock, conflict_type, local_timestamp, remote_timestamp,
	local_device, remote_device, detected_at, resolved_at, resolution`

// Save upserts a conflict row.
func (r *ConflictRepository) Save(ctx context.Context, c *syncpkg.Conflict) error {
	if err := c.Validate(); err != nil {
		return err
	}
	localClock, err := json.Marshal(c.LocalClock)
	if err != nil {
		return wrapErr("save conflict", err)
	}
	remoteClock, err := json.Marshal(c.RemoteClock)
	if err != nil {
		return wrapErr("save conflict", err)
	}

	var resolution any
	if c.Resolution != nil {
		resolution = string(*c.Resolution)
	}

	_, err = r.s.db.ExecContext(ctx, `
		INSERT INTO sync_conflicts (`+conflictColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			resolved_at = excluded.resolved_at,
			resolution = excluded.resolution
	`,
		c.ID.String(),
		c.LocalEventID.String(),
		c.RemoteEventID.String(),
		c.AggregateID,
		c.LocalVersion,
		c.RemoteVersion,
		string(localClock),
		string(remoteClock),
		string(c.Type),
		formatTime(c.LocalTimestamp),
		formatTime(c.RemoteTimestamp),
		c.LocalDevice.String(),
		c.RemoteDevice.String(),
		formatTime(c.DetectedAt),
		formatTimePtr(c.ResolvedAt),
		resolution,
	)
	if err != nil {
		return wrapErr("save conflict", err)
	}
	return nil
}

// FindPending returns unresolved conflicts, oldest first.
func (r *ConflictRepository) FindPending(ctx context.Context) ([]*syncpkg.Conflict, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		SELECT `+conflictColumns+` FROM sync_conflicts
		WHERE resolution IS NULL
		ORDER BY detected_at ASC
	`)
	if err != nil {
		return nil, wrapErr("find pending conflicts", err)
	}
	defer rows.Close()

	var out []*syncpkg.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, wrapErr("scan conflict", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate conflicts", err)
	}
	return out, nil
}

// FindByID returns a conflict, nil when absent.
func (r *ConflictRepository) FindByID(ctx context.Context, id ids.ConflictID) (*syncpkg.Conflict, error) {
	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM sync_conflicts WHERE id = ?`, id.String())
	c, err := scanConflict(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find conflict", err)
	}
	return c, nil
}

func scanConflict(row interface{ Scan(...any) error }) (*syncpkg.Conflict, error) {
	var (
		c           syncpkg.Conflict
		rawID       string
		rawLocal    string
		rawRemote   string
		localClock  string
		remoteClock string
		rawType     string
		localTS     string
		remoteTS    string
		localDev    string
		remoteDev   string
		detectedAt  string
		resolvedAt  sql.NullString
		resolution  sql.NullString
	)
	if err := row.Scan(&rawID, &rawLocal, &rawRemote, &c.AggregateID, &c.LocalVersion, &c.RemoteVersion,
		&localClock, &remoteClock, &rawType, &localTS, &remoteTS,
		&localDev, &remoteDev, &detectedAt, &resolvedAt, &resolution); err != nil {
		return nil, err
	}

	c.ID = ids.ConflictID(rawID)
	c.LocalEventID = ids.EventID(rawLocal)
	c.RemoteEventID = ids.EventID(rawRemote)
	c.Type = syncpkg.ConflictType(rawType)
	c.LocalDevice = ids.DeviceID(localDev)
	c.RemoteDevice = ids.DeviceID(remoteDev)

	if err := json.Unmarshal([]byte(localClock), &c.LocalClock); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(remoteClock), &c.RemoteClock); err != nil {
		return nil, err
	}

	var err error
	if c.LocalTimestamp, err = parseTime(localTS); err != nil {
		return nil, err
	}
	if c.RemoteTimestamp, err = parseTime(remoteTS); err != nil {
		return nil, err
	}
	if c.DetectedAt, err = parseTime(detectedAt); err != nil {
		return nil, err
	}
	if c.ResolvedAt, err = parseTimePtr(resolvedAt); err != nil {
		return nil, err
	}
	if resolution.Valid {
		res := syncpkg.Resolution(resolution.String)
		c.Resolution = &res
	}
	return &c, nil
}
