package store

import (
	"context"

	"github.com/kamiazya/scopes/internal/ids"
	syncpkg "github.com/kamiazya/scopes/internal/sync"
	"github.com/kamiazya/scopes/internal/vclock"
)

// LocalTransport implements sync.Transport against another device's store
// opened directly (a second database file on shared or removable storage).
// Network transports satisfy the same interface; this one keeps sync usable
// with no connectivity at all.
type LocalTransport struct {
	remote *Store
}

// NewLocalTransport wraps a remote device's store as a transport.
func NewLocalTransport(remote *Store) *LocalTransport {
	return &LocalTransport{remote: remote}
}

// SendEvents appends events to the remote store's log and acknowledges each
// one. Appends are idempotent, so re-sending after a failed round is safe.
func (t *LocalTransport) SendEvents(ctx context.Context, device ids.DeviceID, events []syncpkg.Event) ([]ids.EventID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.remote.Events().Append(ctx, events); err != nil {
		return nil, err
	}
	acked := make([]ids.EventID, len(events))
	for i, ev := range events {
		acked[i] = ev.ID
	}
	return acked, nil
}

// ReceiveEvents returns the remote store's events not covered by
// sinceClock.
func (t *LocalTransport) ReceiveEvents(ctx context.Context, device ids.DeviceID, sinceClock vclock.Clock) ([]syncpkg.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.remote.Events().EventsAhead(ctx, sinceClock)
}
