package room

import (
	"fmt"

	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// checkInvariants re-derives the ledger from teams and items and compares
// it with the open item's state.
func (r *Room) checkInvariants() error {
	owners := make(map[string]string)
	for _, team := range r.teams {
		if err := team.CheckInvariants(r.cfg.Rules.MaxOverseas); err != nil {
			return fmt.Errorf("%w: %w", ErrInvariant, err)
		}
		for _, p := range team.Purchases {
			if prev, ok := owners[p.ItemID]; ok {
				return fmt.Errorf("%w: item %s owned by %s and %s", ErrInvariant, p.ItemID, prev, team.ID)
			}
			owners[p.ItemID] = team.ID
		}
	}

	for _, item := range r.items {
		owner, owned := owners[item.ID]
		switch item.Status {
		case models.ItemSold:
			if !owned || item.OwnerTeamID == nil || *item.OwnerTeamID != owner {
				return fmt.Errorf("%w: sold item %s has no matching purchase", ErrInvariant, item.ID)
			}
		default:
			if owned {
				return fmt.Errorf("%w: item %s is %s but owned by %s", ErrInvariant, item.ID, item.Status, owner)
			}
		}
	}

	if r.open == nil {
		return nil
	}
	if r.open.Resolved() {
		return fmt.Errorf("%w: open item %s already resolved", ErrInvariant, r.open.ID)
	}
	for i := 1; i < len(r.bidLog); i++ {
		if !r.bidLog[i].Amount.GreaterThan(r.bidLog[i-1].Amount) {
			return fmt.Errorf("%w: bid log for %s is not strictly increasing", ErrInvariant, r.open.ID)
		}
	}
	if n := len(r.bidLog); n > 0 {
		last := r.bidLog[n-1]
		if last.TeamID != r.leaderID || !last.Amount.Equal(r.currentPrice) {
			return fmt.Errorf("%w: leader does not match last bid on %s", ErrInvariant, r.open.ID)
		}
	} else if r.leaderID != "" {
		return fmt.Errorf("%w: leader without bids on %s", ErrInvariant, r.open.ID)
	}
	return nil
}

// verify freezes the room on the first violation
func (r *Room) verify() bool {
	if err := r.checkInvariants(); err != nil {
		r.freeze(err)
		return false
	}
	return true
}

// freeze stops the auction where it stands. The state is kept for
// inspection and no further action is accepted.
func (r *Room) freeze(err error) {
	if r.frozen {
		return
	}
	r.frozen = true
	r.stopTicker()

	log.Error().
		Err(err).
		Str("room_code", r.code).
		Str("phase", string(r.phase)).
		Msg("room frozen")

	r.broadcast(protocol.EventError, protocol.ErrorPayload{Code: ErrorCode(ErrRoomFrozen), Message: err.Error()})
	r.broadcast(protocol.EventAuctionState, r.auctionState())
	r.saveSnapshot()
}
