package persistence

import (
	"context"
	"testing"

	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Store          = (*MockStore)(nil)
	_ SnapshotReader = (*PostgresStore)(nil)
	_ SnapshotReader = (*SnapshotCache)(nil)
	_ SnapshotReader = SnapshotChain(nil)
)

type readerFunc func(ctx context.Context, roomCode string) (protocol.RoomSnapshot, error)

func (f readerFunc) Snapshot(ctx context.Context, roomCode string) (protocol.RoomSnapshot, error) {
	return f(ctx, roomCode)
}

func found(phase models.Phase) SnapshotReader {
	return readerFunc(func(_ context.Context, code string) (protocol.RoomSnapshot, error) {
		return protocol.RoomSnapshot{Code: code, Phase: phase}, nil
	})
}

func failing(err error) SnapshotReader {
	return readerFunc(func(context.Context, string) (protocol.RoomSnapshot, error) {
		return protocol.RoomSnapshot{}, err
	})
}

func TestSnapshotChain(t *testing.T) {
	tests := []struct {
		name          string
		chain         SnapshotChain
		wantPhase     models.Phase
		expectedError error
	}{
		{
			name:      "first_reader_wins",
			chain:     SnapshotChain{found(models.PhaseActive), found(models.PhaseLobby)},
			wantPhase: models.PhaseActive,
		},
		{
			name:      "falls_through_on_miss",
			chain:     SnapshotChain{failing(ErrNotFound), found(models.PhaseCompleted)},
			wantPhase: models.PhaseCompleted,
		},
		{
			name:      "falls_through_on_backend_error",
			chain:     SnapshotChain{failing(errBackend), found(models.PhaseBreak)},
			wantPhase: models.PhaseBreak,
		},
		{
			name:          "all_miss",
			chain:         SnapshotChain{failing(ErrNotFound), failing(ErrNotFound)},
			expectedError: ErrNotFound,
		},
		{
			name:          "backend_error_reported_over_miss",
			chain:         SnapshotChain{failing(errBackend), failing(ErrNotFound)},
			expectedError: errBackend,
		},
		{
			name:          "empty_chain",
			chain:         nil,
			expectedError: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := tt.chain.Snapshot(context.Background(), "ABC234")
			if tt.expectedError != nil {
				require.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ABC234", snap.Code)
			assert.Equal(t, tt.wantPhase, snap.Phase)
		})
	}
}
