package room

import (
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

func (r *Room) auctionState() protocol.AuctionState {
	teams := make([]models.Team, 0, len(r.teams))
	for _, t := range r.teams {
		teams = append(teams, t.Clone())
	}
	state := protocol.AuctionState{
		Phase:        r.phase,
		Teams:        teams,
		CurrentPrice: r.currentPrice,
		LeaderID:     r.leaderID,
		BidLog:       append([]models.BidRecord{}, r.bidLog...),
		Countdown:    r.countdown,
		Paused:       r.pausedBy != "",
		PausedBy:     r.pausedBy,
		Frozen:       r.frozen,
		Round: protocol.RoundInfo{
			Set:        r.lastSet,
			ItemNumber: r.nextItem,
			TotalItems: len(r.items),
		},
	}
	if r.open != nil {
		item := *r.open
		state.OpenItem = &item
	}
	for _, item := range r.items {
		switch item.Status {
		case models.ItemSold:
			state.Round.ItemsSold++
		case models.ItemUnsold:
			state.Round.ItemsUnsold++
		}
	}
	return state
}

func (r *Room) snapshot() protocol.RoomSnapshot {
	items := make([]models.Item, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, *item)
	}
	return protocol.RoomSnapshot{
		Code:            r.code,
		CreatedAt:       r.createdAt,
		Phase:           r.phase,
		MinParticipants: r.cfg.MinParticipants,
		Participants:    r.sessions.views(),
		Items:           items,
		State:           r.auctionState(),
		TakenAt:         r.clock.Now(),
	}
}

func (r *Room) summary() protocol.RoomSummary {
	sum := protocol.RoomSummary{
		Code:         r.code,
		Phase:        r.phase,
		Participants: r.sessions.count(),
		OpenSlots:    len(r.teams) - r.sessions.count(),
		CreatedAt:    r.createdAt,
	}
	if h := r.sessions.host(); h != nil {
		sum.HostName = h.DisplayName
	}
	if !r.phase.Joinable() {
		sum.OpenSlots = 0
	}
	return sum
}

func (r *Room) saveSnapshot() {
	r.recorder.SaveRoomSnapshot(r.code, r.snapshot())
}
