// Package persistence records room snapshots, purchases and final results.
// The room loop never waits on it: a Writer queues every call and a single
// worker applies them to the configured Store.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/scoring"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/shopspring/decimal"
)

//go:generate go run github.com/golang/mock/mockgen@v1.6.0 -source=store.go -destination=mock_store.go -package=persistence

// Store is a persistence backend
type Store interface {
	SaveRoomSnapshot(ctx context.Context, roomCode string, snapshot protocol.RoomSnapshot) error
	RecordPurchase(ctx context.Context, purchase PurchaseRecord) error
	SaveFinalResults(ctx context.Context, roomCode string, results []scoring.TeamResult) error
}

// PurchaseRecord is one resolved sale
type PurchaseRecord struct {
	RoomCode    string          `json:"room_code"`
	ItemID      string          `json:"item_id"`
	ItemName    string          `json:"item_name"`
	Category    models.Category `json:"category"`
	Overseas    bool            `json:"overseas"`
	TeamID      string          `json:"team_id"`
	TeamName    string          `json:"team_name"`
	Price       decimal.Decimal `json:"price"`
	Remaining   decimal.Decimal `json:"remaining_budget"`
	PurchasedAt time.Time       `json:"purchased_at"`
}

// MultiStore fans every call out to all of its stores. Every store is
// attempted; the errors are joined.
type MultiStore []Store

func (m MultiStore) SaveRoomSnapshot(ctx context.Context, roomCode string, snapshot protocol.RoomSnapshot) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.SaveRoomSnapshot(ctx, roomCode, snapshot))
	}
	return errors.Join(errs...)
}

func (m MultiStore) RecordPurchase(ctx context.Context, purchase PurchaseRecord) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.RecordPurchase(ctx, purchase))
	}
	return errors.Join(errs...)
}

func (m MultiStore) SaveFinalResults(ctx context.Context, roomCode string, results []scoring.TeamResult) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.SaveFinalResults(ctx, roomCode, results))
	}
	return errors.Join(errs...)
}

// ErrNotFound is returned by loaders when nothing is stored
var ErrNotFound = errors.New("not found")
