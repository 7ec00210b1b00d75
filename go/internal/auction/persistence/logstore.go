package persistence

import (
	"context"

	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/scoring"
	"github.com/rs/zerolog/log"
)

// LogStore only logs. It is used when no backend is configured.
type LogStore struct{}

func (LogStore) SaveRoomSnapshot(_ context.Context, roomCode string, snapshot protocol.RoomSnapshot) error {
	log.Debug().
		Str("room_code", roomCode).
		Str("phase", string(snapshot.Phase)).
		Int("participants", len(snapshot.Participants)).
		Msg("room snapshot")
	return nil
}

func (LogStore) RecordPurchase(_ context.Context, p PurchaseRecord) error {
	log.Info().
		Str("room_code", p.RoomCode).
		Str("item_id", p.ItemID).
		Str("team_id", p.TeamID).
		Str("price", p.Price.String()).
		Msg("purchase recorded")
	return nil
}

func (LogStore) SaveFinalResults(_ context.Context, roomCode string, results []scoring.TeamResult) error {
	for _, r := range results {
		log.Info().
			Str("room_code", roomCode).
			Int("rank", r.Rank).
			Str("team_id", r.TeamID).
			Float64("overall", r.Overall).
			Msg("final standing")
	}
	return nil
}
