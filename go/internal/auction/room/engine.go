package room

import (
	"github.com/mcdev12/auctionroom/go/internal/auction/bidding"
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/scoring"
	"github.com/mcdev12/auctionroom/go/internal/auction/synthetic"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// startAuction moves a lobby into the pre-auction countdown
func (r *Room) startAuction(connID string) error {
	if r.frozen {
		return ErrRoomFrozen
	}
	s, err := r.sessions.forConn(connID)
	if err != nil {
		return err
	}
	if !s.IsHost {
		return ErrNotHost
	}
	if r.phase != models.PhaseLobby {
		return ErrWrongPhase
	}
	bound := 0
	for _, sess := range r.sessions.sessions {
		if sess.TeamID != "" {
			bound++
		}
	}
	if bound < r.cfg.MinParticipants {
		return ErrNotEnoughParticipants
	}
	if len(r.items) == 0 {
		return ErrNoOpenItem
	}

	r.touch()
	r.phase = models.PhaseCountdown
	r.countdown = r.cfg.CountdownSeconds

	log.Info().
		Str("room_code", r.code).
		Int("human_teams", bound).
		Int("items", len(r.items)).
		Msg("auction countdown started")

	r.broadcast(protocol.EventRoomUpdate, protocol.RoomUpdatePayload{Room: r.snapshot()})
	if r.countdown <= 0 {
		r.beginBidding()
	} else {
		r.broadcast(protocol.EventCountdown, protocol.CountdownPayload{SecondsRemaining: r.countdown})
	}
	r.startTicker()
	r.saveSnapshot()
	return nil
}

// tick is one scheduler step: age the countdown, let synthetic teams bid,
// resolve an expired item, then broadcast.
func (r *Room) tick() {
	if r.frozen || !r.phase.Ticking() {
		return
	}
	r.ticks++
	r.touch()

	switch r.phase {
	case models.PhaseCountdown:
		r.countdown--
		if r.countdown <= 0 {
			r.beginBidding()
		} else {
			r.broadcast(protocol.EventCountdown, protocol.CountdownPayload{SecondsRemaining: r.countdown})
		}

	case models.PhaseBreak:
		r.countdown--
		if r.countdown <= 0 {
			r.phase = models.PhaseActive
			r.openNextItem()
		}

	case models.PhaseActive:
		if r.pausedBy != "" {
			r.pauseLeft--
			if r.pauseLeft <= 0 {
				log.Info().Str("room_code", r.code).Str("team_id", r.pausedBy).Msg("strategic timeout over")
				r.pausedBy = ""
			}
			break
		}
		if r.countdown > 0 {
			r.countdown--
		}
		r.runSynthetic()
		if r.frozen {
			return
		}
		if r.countdown <= 0 && r.open != nil {
			r.resolveOpenItem()
			if r.frozen {
				return
			}
			r.advance()
		}
	}

	if r.frozen || r.phase == models.PhaseCompleted {
		return
	}
	r.broadcast(protocol.EventAuctionState, r.auctionState())
	if r.cfg.SnapshotEveryTicks > 0 && r.ticks%r.cfg.SnapshotEveryTicks == 0 {
		r.saveSnapshot()
	}
}

func (r *Room) beginBidding() {
	r.phase = models.PhaseActive
	r.broadcast(protocol.EventAuctionStarted, protocol.AuctionStartedPayload{
		TotalItems: len(r.items),
		FirstItem:  r.items[r.nextItem],
	})
	r.openNextItem()
}

func (r *Room) openNextItem() {
	item := r.items[r.nextItem]
	r.nextItem++

	r.open = item
	r.currentPrice = item.BasePrice
	r.leaderID = ""
	r.bidLog = nil
	r.countdown = r.cfg.ItemSeconds
	r.lastSet = item.Set

	log.Debug().
		Str("room_code", r.code).
		Str("item_id", item.ID).
		Str("base_price", item.BasePrice.String()).
		Msg("item opened")
}

// advance dequeues the next item, enters a break between sets, or completes
func (r *Room) advance() {
	r.open = nil
	r.leaderID = ""
	r.bidLog = nil
	r.pausedBy = ""
	r.pauseLeft = 0
	r.countdown = 0

	if r.cfg.EndWhenAllTeamsDone && r.allTeamsDone() {
		for _, item := range r.items[r.nextItem:] {
			if err := item.MarkUnsold(); err != nil {
				r.freeze(err)
				return
			}
		}
		r.nextItem = len(r.items)
		log.Info().Str("room_code", r.code).Msg("no team can buy further, closing auction early")
	}

	if r.nextItem >= len(r.items) {
		r.complete()
		return
	}

	if next := r.items[r.nextItem]; r.cfg.BreakSeconds > 0 && r.lastSet != "" && next.Set != r.lastSet {
		r.phase = models.PhaseBreak
		r.countdown = r.cfg.BreakSeconds
		log.Info().
			Str("room_code", r.code).
			Str("finished_set", r.lastSet).
			Str("next_set", next.Set).
			Msg("break between sets")
		r.broadcast(protocol.EventRoomUpdate, protocol.RoomUpdatePayload{Room: r.snapshot()})
		r.saveSnapshot()
		return
	}

	r.openNextItem()
}

// allTeamsDone reports whether no team can afford or fit any remaining item
func (r *Room) allTeamsDone() bool {
	remaining := r.items[r.nextItem:]
	if len(remaining) == 0 {
		return true
	}
	cheapest := remaining[0].BasePrice
	for _, item := range remaining[1:] {
		if item.BasePrice.LessThan(cheapest) {
			cheapest = item.BasePrice
		}
	}
	for _, team := range r.teams {
		if team.Status == models.TeamInactive {
			continue
		}
		if !team.RosterFull() && team.RemainingBudget.GreaterThanOrEqual(cheapest) {
			return false
		}
	}
	return true
}

// resolveOpenItem sells the open item to the leader, or closes it unsold
func (r *Room) resolveOpenItem() {
	item := r.open
	if r.leaderID == "" {
		if err := item.MarkUnsold(); err != nil {
			r.freeze(err)
			return
		}
		r.open = nil
		log.Info().Str("room_code", r.code).Str("item_id", item.ID).Msg("item unsold")
		r.broadcast(protocol.EventPlayerUnsold, protocol.PlayerUnsoldPayload{Item: *item})
		r.verify()
		return
	}

	team := r.teamByID[r.leaderID]
	price := r.currentPrice
	if _, err := team.Acquire(item, price, r.clock.Now()); err != nil {
		r.freeze(err)
		return
	}
	r.open = nil
	if !r.verify() {
		return
	}

	log.Info().
		Str("room_code", r.code).
		Str("item_id", item.ID).
		Str("team_id", team.ID).
		Str("price", price.String()).
		Msg("item sold")

	r.broadcast(protocol.EventPlayerSold, protocol.PlayerSoldPayload{
		Item:     *item,
		TeamID:   team.ID,
		TeamName: team.Name,
		Price:    price,
	})
	r.recorder.RecordPurchase(r.code, *item, team.Clone(), price)
}

// complete runs the scoring pass and sends the results exactly once
func (r *Room) complete() {
	r.phase = models.PhaseCompleted
	r.open = nil
	r.stopTicker()
	if r.resultsSent {
		return
	}
	r.resultsSent = true
	r.results = scoring.Rank(r.teams, r.cfg.Scoring)

	log.Info().
		Str("room_code", r.code).
		Int("teams", len(r.results)).
		Str("winner", r.results[0].TeamID).
		Msg("auction completed")

	r.broadcast(protocol.EventAuctionState, r.auctionState())
	r.broadcast(protocol.EventAuctionComplete, protocol.AuctionCompletePayload{Results: r.results})
	r.recorder.SaveFinalResults(r.code, r.results)
	r.saveSnapshot()
}

// placeBid is the single acceptance path for human and synthetic bids
func (r *Room) placeBid(teamID string, amount decimal.Decimal, synthetic bool) error {
	if r.frozen {
		return ErrRoomFrozen
	}
	if r.phase != models.PhaseActive && r.phase != models.PhaseBreak {
		return ErrWrongPhase
	}
	if r.open == nil {
		return ErrNoOpenItem
	}
	team, ok := r.teamByID[teamID]
	if !ok {
		return ErrUnknownTeam
	}
	if r.leaderID == teamID {
		return ErrAlreadyLeading
	}

	err := bidding.Validate(r.cfg.Rules, bidding.BidContext{
		Team:         team,
		Item:         r.open,
		CurrentPrice: r.currentPrice,
		HasLeader:    r.leaderID != "",
		Amount:       amount,
	})
	if err != nil {
		return err
	}

	r.currentPrice = amount
	r.leaderID = teamID
	r.bidLog = append(r.bidLog, models.BidRecord{
		TeamID:    teamID,
		Amount:    amount,
		Synthetic: synthetic,
		PlacedAt:  r.clock.Now(),
	})
	if r.countdown < r.cfg.BidFloorSeconds {
		r.countdown = r.cfg.BidFloorSeconds
	}
	if !r.verify() {
		return ErrRoomFrozen
	}
	return nil
}

func (r *Room) humanBid(connID, teamID string, amount decimal.Decimal) error {
	if r.frozen {
		return ErrRoomFrozen
	}
	s, err := r.sessions.forConn(connID)
	if err != nil {
		return err
	}
	if s.TeamID == "" || s.TeamID != teamID {
		return ErrNotYourTeam
	}
	s.LastSeen = r.clock.Now()
	r.touch()

	if err := r.placeBid(teamID, amount, false); err != nil {
		return err
	}
	r.broadcast(protocol.EventAuctionState, r.auctionState())
	return nil
}

func (r *Room) runSynthetic() {
	if r.open == nil {
		return
	}
	market := synthetic.Market{
		Item:           r.open,
		CurrentPrice:   r.currentPrice,
		HasLeader:      r.leaderID != "",
		LeaderID:       r.leaderID,
		ItemsRemaining: len(r.items) - r.nextItem + 1,
	}
	bid, ok, err := r.synth.Decide(r.teams, market)
	if err != nil {
		log.Warn().Err(err).Str("room_code", r.code).Msg("synthetic engine produced an invalid bid")
		return
	}
	if !ok {
		return
	}
	if err := r.placeBid(bid.TeamID, bid.Amount, true); err != nil {
		log.Warn().
			Err(err).
			Str("room_code", r.code).
			Str("team_id", bid.TeamID).
			Str("amount", bid.Amount.String()).
			Msg("synthetic bid dropped")
		return
	}
	log.Debug().
		Str("room_code", r.code).
		Str("team_id", bid.TeamID).
		Str("amount", bid.Amount.String()).
		Str("strategy", string(bid.Strategy)).
		Msg("synthetic bid")
}

// strategicTimeout pauses the item countdown on behalf of a team
func (r *Room) strategicTimeout(connID, teamID string) error {
	if r.frozen {
		return ErrRoomFrozen
	}
	s, err := r.sessions.forConn(connID)
	if err != nil {
		return err
	}
	if s.TeamID == "" || s.TeamID != teamID {
		return ErrNotYourTeam
	}
	if r.phase != models.PhaseActive {
		return ErrWrongPhase
	}
	if r.open == nil {
		return ErrNoOpenItem
	}
	if r.pausedBy != "" {
		return ErrAlreadyPaused
	}
	team := r.teamByID[teamID]
	if team.TimeoutsRemaining <= 0 {
		return ErrNoTimeoutsLeft
	}

	r.touch()
	team.TimeoutsRemaining--
	r.pausedBy = teamID
	r.pauseLeft = r.cfg.StrategicTimeoutSeconds

	log.Info().
		Str("room_code", r.code).
		Str("team_id", teamID).
		Int("timeouts_left", team.TimeoutsRemaining).
		Msg("strategic timeout called")

	r.broadcast(protocol.EventAuctionState, r.auctionState())
	return nil
}

// markUnsold resolves the open item unsold regardless of any leader
func (r *Room) markUnsold(connID string) error {
	if r.frozen {
		return ErrRoomFrozen
	}
	s, err := r.sessions.forConn(connID)
	if err != nil {
		return err
	}
	if !s.IsHost {
		return ErrNotHost
	}
	if r.phase != models.PhaseActive {
		return ErrWrongPhase
	}
	if r.open == nil {
		return ErrNoOpenItem
	}

	r.touch()
	item := r.open
	r.countdown = 0
	if err := item.MarkUnsold(); err != nil {
		r.freeze(err)
		return ErrRoomFrozen
	}
	r.open = nil
	log.Info().
		Str("room_code", r.code).
		Str("item_id", item.ID).
		Str("leader", r.leaderID).
		Msg("host marked item unsold")

	r.broadcast(protocol.EventPlayerUnsold, protocol.PlayerUnsoldPayload{Item: *item})
	if !r.verify() {
		return ErrRoomFrozen
	}
	r.advance()
	if r.phase != models.PhaseCompleted && !r.frozen {
		r.broadcast(protocol.EventAuctionState, r.auctionState())
	}
	return nil
}
