package persistence

import (
	"context"
	"errors"

	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
)

// SnapshotReader serves the last saved snapshot of a room
type SnapshotReader interface {
	Snapshot(ctx context.Context, roomCode string) (protocol.RoomSnapshot, error)
}

// SnapshotChain asks each reader in turn and returns the first snapshot
// found. ErrNotFound means none of them had it.
type SnapshotChain []SnapshotReader

func (c SnapshotChain) Snapshot(ctx context.Context, roomCode string) (protocol.RoomSnapshot, error) {
	var errs []error
	for _, r := range c {
		snap, err := r.Snapshot(ctx, roomCode)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return protocol.RoomSnapshot{}, errors.Join(errs...)
	}
	return protocol.RoomSnapshot{}, ErrNotFound
}
