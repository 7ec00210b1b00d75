package room

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/mcdev12/auctionroom/go/internal/auction/bidding"
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/synthetic"
	"github.com/mcdev12/auctionroom/go/internal/catalogue"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAuction_Guards(t *testing.T) {
	h := newLobby(t, testConfig(), 3)

	require.ErrorIs(t, h.room.startAuction("conn-b"), ErrNotHost)
	require.ErrorIs(t, h.room.startAuction("conn-x"), ErrNotInRoom)

	require.NoError(t, h.room.startAuction("conn-a"))
	assert.Equal(t, models.PhaseCountdown, h.room.phase)
	require.ErrorIs(t, h.room.startAuction("conn-a"), ErrWrongPhase)

	ev, ok := h.b.last(protocol.EventCountdown)
	require.True(t, ok)
	var cd protocol.CountdownPayload
	require.NoError(t, ev.DecodeData(&cd))
	assert.Equal(t, 2, cd.SecondsRemaining)
}

func TestStartAuction_NeedsParticipants(t *testing.T) {
	cfg := testConfig()
	cfg.MinParticipants = 2
	r := New("TEST02", cfg, testCatalogue(2), WithBidder(quietBidder{}))
	_, err := r.join(newFakeConn("c1"), "id-1", "Solo")
	require.NoError(t, err)
	require.NoError(t, r.selectTeam("c1", "A"))

	require.ErrorIs(t, r.startAuction("c1"), ErrNotEnoughParticipants)
}

func TestCountdownOpensFirstItem(t *testing.T) {
	h := newLobby(t, testConfig(), 3)
	h.started(t)

	assert.Equal(t, "p1", h.room.open.ID)
	assert.True(t, h.room.currentPrice.Equal(dec("2")))
	assert.Equal(t, 5, h.room.countdown)
	assert.Len(t, h.a.ofType(protocol.EventAuctionStarted), 1)
}

func TestHighestBidderWins(t *testing.T) {
	rec := &recordingRecorder{}
	h := newLobby(t, testConfig(), 3, WithRecorder(rec))
	h.started(t)

	require.NoError(t, h.room.humanBid("conn-a", "A", dec("3")))
	require.NoError(t, h.room.humanBid("conn-b", "B", dec("4")))
	h.ticks(5)

	item := h.room.items[0]
	require.Equal(t, models.ItemSold, item.Status)
	require.NotNil(t, item.OwnerTeamID)
	assert.Equal(t, "B", *item.OwnerTeamID)
	assert.True(t, item.FinalPrice.Equal(dec("4")))

	teamA, teamB := h.room.teamByID["A"], h.room.teamByID["B"]
	assert.True(t, teamB.RemainingBudget.Equal(dec("96")), teamB.RemainingBudget.String())
	assert.True(t, teamA.RemainingBudget.Equal(dec("100")))
	assert.Equal(t, 1, teamB.RosterSize())
	assert.Equal(t, 0, teamA.RosterSize())

	ev, ok := h.a.last(protocol.EventPlayerSold)
	require.True(t, ok)
	var sold protocol.PlayerSoldPayload
	require.NoError(t, ev.DecodeData(&sold))
	assert.Equal(t, "B", sold.TeamID)
	assert.True(t, sold.Price.Equal(dec("4")))
	assert.Equal(t, []string{"p1:B"}, rec.purchases)

	assert.Equal(t, "p2", h.room.open.ID)
}

func TestHighestBidderWins_TwoHumansEightSynthetic(t *testing.T) {
	cat, err := catalogue.Default()
	require.NoError(t, err)
	require.Len(t, cat.Franchises, 10)

	rec := &recordingRecorder{}
	cfg := testConfig()
	r := New("TEST10", cfg, cat, WithBidder(quietBidder{}), WithRecorder(rec))

	humanA, humanB := cat.Franchises[0].ID, cat.Franchises[1].ID
	_, err = r.join(newFakeConn("conn-a"), "identity-a", "Alice")
	require.NoError(t, err)
	_, err = r.join(newFakeConn("conn-b"), "identity-b", "Bob")
	require.NoError(t, err)
	require.NoError(t, r.selectTeam("conn-a", humanA))
	require.NoError(t, r.selectTeam("conn-b", humanB))

	require.NoError(t, r.startAuction("conn-a"))
	for i := 0; i < cfg.CountdownSeconds; i++ {
		r.tick()
	}
	require.Equal(t, models.PhaseActive, r.phase)

	var synthetics int
	for _, team := range r.teams {
		if team.IsSynthetic() {
			synthetics++
		}
	}
	assert.Equal(t, 8, synthetics)

	item := r.open
	require.NotNil(t, item)
	opening := item.BasePrice
	raise := cfg.Rules.NextValidBid(opening, true)
	require.NoError(t, r.humanBid("conn-a", humanA, opening))
	require.NoError(t, r.humanBid("conn-b", humanB, raise))
	for i := 0; i < cfg.ItemSeconds; i++ {
		r.tick()
	}

	require.Equal(t, models.ItemSold, item.Status)
	require.NotNil(t, item.OwnerTeamID)
	assert.Equal(t, humanB, *item.OwnerTeamID)
	assert.True(t, item.FinalPrice.Equal(raise))

	for _, team := range r.teams {
		if team.ID == humanB {
			assert.True(t, team.RemainingBudget.Equal(cfg.Rules.StartingBudget.Sub(raise)), team.RemainingBudget.String())
			assert.Equal(t, 1, team.RosterSize())
			continue
		}
		assert.True(t, team.RemainingBudget.Equal(cfg.Rules.StartingBudget), team.ID)
		assert.Zero(t, team.RosterSize(), team.ID)
	}
	assert.Equal(t, []string{item.ID + ":" + humanB}, rec.purchases)
}

func TestBidValidation(t *testing.T) {
	h := newLobby(t, testConfig(), 3)
	h.started(t)

	err := h.room.humanBid("conn-a", "A", dec("1.5"))
	require.ErrorIs(t, err, bidding.ErrBidTooLow)
	assert.Equal(t, "bid_too_low", ErrorCode(err))

	require.ErrorIs(t, h.room.humanBid("conn-a", "B", dec("3")), ErrNotYourTeam)

	err = h.room.humanBid("conn-a", "A", dec("2.123456"))
	require.ErrorIs(t, err, bidding.ErrInvalidAmount)
	assert.Equal(t, "invalid_amount", ErrorCode(err))
	assert.Empty(t, h.room.leaderID, "a rejected bid leaves the item without a leader")

	require.NoError(t, h.room.humanBid("conn-a", "A", dec("2")))
	require.ErrorIs(t, h.room.humanBid("conn-a", "A", dec("3")), ErrAlreadyLeading)
	require.ErrorIs(t, h.room.humanBid("conn-b", "B", dec("2.1")), bidding.ErrBidTooLow)
	require.ErrorIs(t, h.room.humanBid("conn-b", "B", dec("101")), bidding.ErrInsufficientBudget)
	require.NoError(t, h.room.humanBid("conn-b", "B", dec("2.2")))

	require.Len(t, h.room.bidLog, 2)
	assert.Equal(t, "B", h.room.leaderID)
}

func TestBidExtendsCountdownToFloor(t *testing.T) {
	h := newLobby(t, testConfig(), 3)
	h.started(t)

	h.ticks(4)
	require.Equal(t, 1, h.room.countdown)
	require.NoError(t, h.room.humanBid("conn-a", "A", dec("2")))
	assert.Equal(t, 3, h.room.countdown)

	h.ticks(2)
	require.Equal(t, 1, h.room.countdown)
	require.NoError(t, h.room.humanBid("conn-b", "B", dec("2.5")))
	assert.Equal(t, 3, h.room.countdown)

	h.ticks(3)
	assert.Equal(t, models.ItemSold, h.room.items[0].Status)
}

func TestNoBidsMeansUnsold(t *testing.T) {
	h := newLobby(t, testConfig(), 3)
	h.started(t)

	h.ticks(5)
	assert.Equal(t, models.ItemUnsold, h.room.items[0].Status)
	assert.Nil(t, h.room.items[0].OwnerTeamID)
	assert.Len(t, h.b.ofType(protocol.EventPlayerUnsold), 1)
	assert.Equal(t, "p2", h.room.open.ID)
}

func TestHostMarksUnsold(t *testing.T) {
	h := newLobby(t, testConfig(), 3)
	h.started(t)

	require.NoError(t, h.room.humanBid("conn-b", "B", dec("5")))
	require.ErrorIs(t, h.room.markUnsold("conn-b"), ErrNotHost)
	require.NoError(t, h.room.markUnsold("conn-a"))

	first := h.room.items[0]
	assert.Equal(t, models.ItemUnsold, first.Status)
	assert.Equal(t, 0, h.room.teamByID["B"].RosterSize())
	assert.True(t, h.room.teamByID["B"].RemainingBudget.Equal(dec("100")))

	require.NotNil(t, h.room.open)
	assert.Equal(t, "p2", h.room.open.ID)
	assert.Empty(t, h.room.leaderID)
	assert.Empty(t, h.room.bidLog)
}

func TestBreakBetweenSets(t *testing.T) {
	h := newLobby(t, testConfig(), 3)
	h.started(t)

	h.ticks(5) // p1 unsold, p2 opens
	require.Equal(t, "p2", h.room.open.ID)
	h.ticks(5) // p2 unsold, set S2 is next

	assert.Equal(t, models.PhaseBreak, h.room.phase)
	assert.Nil(t, h.room.open)
	require.ErrorIs(t, h.room.humanBid("conn-a", "A", dec("2")), ErrNoOpenItem)

	h.ticks(2)
	assert.Equal(t, models.PhaseActive, h.room.phase)
	require.NotNil(t, h.room.open)
	assert.Equal(t, "p3", h.room.open.ID)
}

func TestStrategicTimeout(t *testing.T) {
	h := newLobby(t, testConfig(), 3)
	h.started(t)

	h.ticks(1)
	require.Equal(t, 4, h.room.countdown)
	require.NoError(t, h.room.strategicTimeout("conn-a", "A"))
	require.ErrorIs(t, h.room.strategicTimeout("conn-b", "B"), ErrAlreadyPaused)
	assert.Equal(t, 1, h.room.teamByID["A"].TimeoutsRemaining)

	h.ticks(4)
	assert.Equal(t, 4, h.room.countdown, "countdown must not age while paused")
	assert.Empty(t, h.room.pausedBy)

	h.ticks(1)
	assert.Equal(t, 3, h.room.countdown)

	require.NoError(t, h.room.strategicTimeout("conn-a", "A"))
	h.ticks(4)
	require.ErrorIs(t, h.room.strategicTimeout("conn-a", "A"), ErrNoTimeoutsLeft)
}

func TestCompletionSendsResultsOnce(t *testing.T) {
	rec := &recordingRecorder{}
	cfg := testConfig()
	cfg.BreakSeconds = 0
	h := newLobby(t, cfg, 2, WithRecorder(rec))
	h.started(t)

	require.NoError(t, h.room.humanBid("conn-a", "A", dec("2")))
	h.ticks(5)
	h.ticks(5)
	require.Equal(t, models.PhaseCompleted, h.room.phase)

	h.ticks(10)
	h.room.complete()

	for _, conn := range []*fakeConn{h.a, h.b} {
		evs := conn.ofType(protocol.EventAuctionComplete)
		require.Len(t, evs, 1)
		var done protocol.AuctionCompletePayload
		require.NoError(t, evs[0].DecodeData(&done))
		require.Len(t, done.Results, 2)
		assert.Equal(t, 1, done.Results[0].Rank)
	}
	assert.Equal(t, 1, rec.finals)
	assert.Nil(t, h.room.ticker)

	require.ErrorIs(t, h.room.humanBid("conn-a", "A", dec("3")), ErrWrongPhase)
}

func TestEarlyEndWhenNoTeamCanBuy(t *testing.T) {
	cfg := testConfig()
	cfg.EndWhenAllTeamsDone = true
	cfg.BreakSeconds = 0
	cfg.Rules.StartingBudget = dec("3")
	cfg.Rules.MinRoster = 1
	h := newLobby(t, cfg, 4)
	h.started(t)

	require.NoError(t, h.room.humanBid("conn-a", "A", dec("2")))
	require.NoError(t, h.room.humanBid("conn-b", "B", dec("2.2")))
	h.ticks(5)
	require.NoError(t, h.room.humanBid("conn-a", "A", dec("2")))
	h.ticks(5)

	assert.Equal(t, models.PhaseCompleted, h.room.phase)
	for _, item := range h.room.items[2:] {
		assert.Equal(t, models.ItemUnsold, item.Status)
	}
}

func TestInvariantViolationFreezesRoom(t *testing.T) {
	h := newLobby(t, testConfig(), 3)
	h.started(t)

	// corrupt the ledger behind the room's back
	h.room.teamByID["A"].RemainingBudget = dec("50")
	require.ErrorIs(t, h.room.humanBid("conn-b", "B", dec("2")), ErrRoomFrozen)

	assert.True(t, h.room.frozen)
	assert.Nil(t, h.room.ticker)
	ev, ok := h.a.last(protocol.EventError)
	require.True(t, ok)
	var payload protocol.ErrorPayload
	require.NoError(t, ev.DecodeData(&payload))
	assert.Equal(t, "room_frozen", payload.Code)

	require.ErrorIs(t, h.room.humanBid("conn-a", "A", dec("3")), ErrRoomFrozen)
	require.ErrorIs(t, h.room.markUnsold("conn-a"), ErrRoomFrozen)
	h.ticks(10)
	assert.Equal(t, models.PhaseActive, h.room.phase)
}

func TestSyntheticTeamsBid(t *testing.T) {
	cfg := testConfig()
	r := New("TEST03", cfg, testCatalogue(6), WithRand(rand.New(rand.NewSource(7))))
	conn := newFakeConn("c1")
	_, err := r.join(conn, "id-1", "Host")
	require.NoError(t, err)
	require.NoError(t, r.selectTeam("c1", "A"))
	require.NoError(t, r.startAuction("c1"))

	for i := 0; i < 200 && r.phase != models.PhaseCompleted; i++ {
		r.tick()
		require.NoError(t, r.checkInvariants())
	}
	require.Equal(t, models.PhaseCompleted, r.phase)

	assert.Zero(t, r.teamByID["A"].RosterSize())
	assert.Positive(t, r.teamByID["B"].RosterSize(), "synthetic team should buy something")
	for _, bid := range conn.ofType(protocol.EventAuctionState) {
		var state protocol.AuctionState
		require.NoError(t, bid.DecodeData(&state))
		for _, rec := range state.BidLog {
			assert.Equal(t, "B", rec.TeamID)
			assert.True(t, rec.Synthetic)
		}
	}
}

// Every reachable state keeps the ledger consistent, whatever mix of human
// and synthetic bids arrives.
func TestRandomBidStreamKeepsInvariants(t *testing.T) {
	cat, err := catalogue.Default()
	require.NoError(t, err)

	for seed := int64(1); seed <= 3; seed++ {
		rng := rand.New(rand.NewSource(seed))
		cfg := DefaultConfig()
		cfg.SnapshotEveryTicks = 0
		cfg.Synthetic = synthetic.DefaultConfig()

		r := New("RAND01", cfg, cat, WithRand(rand.New(rand.NewSource(seed*31))))
		_, err := r.join(discardConn{id: "h"}, "id-h", "Host")
		require.NoError(t, err)
		require.NoError(t, r.selectTeam("h", "MUM"))
		require.NoError(t, r.startAuction("h"))

		for i := 0; i < 100000 && r.phase != models.PhaseCompleted; i++ {
			if r.open != nil && rng.Intn(4) == 0 {
				amount := cfg.Rules.NextValidBid(r.currentPrice, r.leaderID != "")
				if rng.Intn(3) == 0 {
					amount = amount.Sub(cfg.Rules.Increment(r.currentPrice))
				}
				if err := r.humanBid("h", "MUM", amount); err != nil {
					var rej *bidding.Rejection
					if !errors.As(err, &rej) {
						require.ErrorIs(t, err, ErrAlreadyLeading)
					}
				}
			}
			r.tick()
			require.NoError(t, r.checkInvariants())
			require.False(t, r.frozen)
		}
		require.Equal(t, models.PhaseCompleted, r.phase, "seed %d", seed)

		for _, item := range r.items {
			assert.True(t, item.Resolved(), item.ID)
		}
		owned := 0
		for _, team := range r.teams {
			owned += team.RosterSize()
			assert.False(t, team.RemainingBudget.IsNegative())
			assert.LessOrEqual(t, team.RosterSize(), cfg.Rules.MaxRoster)
		}
		sold := 0
		for _, item := range r.items {
			if item.Status == models.ItemSold {
				sold++
			}
		}
		assert.Equal(t, sold, owned)
	}
}
