// Package room runs auction rooms. Each room is a single goroutine that owns
// all of its state; connections, timers and the scheduler only talk to it by
// posting commands onto its queue.
package room

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/scoring"
	"github.com/mcdev12/auctionroom/go/internal/auction/synthetic"
	"github.com/mcdev12/auctionroom/go/internal/catalogue"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Recorder receives persistence callbacks from the room loop. Implementations
// must return immediately; failures are theirs to log.
type Recorder interface {
	SaveRoomSnapshot(roomCode string, snapshot protocol.RoomSnapshot)
	RecordPurchase(roomCode string, item models.Item, team models.Team, price decimal.Decimal)
	SaveFinalResults(roomCode string, results []scoring.TeamResult)
}

// Bidder decides synthetic bids; *synthetic.Engine is the production one
type Bidder interface {
	Decide(teams []*models.Team, market synthetic.Market) (synthetic.Bid, bool, error)
}

type noopRecorder struct{}

func (noopRecorder) SaveRoomSnapshot(string, protocol.RoomSnapshot)                   {}
func (noopRecorder) RecordPurchase(string, models.Item, models.Team, decimal.Decimal) {}
func (noopRecorder) SaveFinalResults(string, []scoring.TeamResult)                    {}

// JoinResult tells the gateway what the connection is now bound to
type JoinResult struct {
	SessionID string
	TeamID    string
	IsHost    bool
}

// Option configures a Room
type Option func(*Room)

func WithClock(c clockwork.Clock) Option { return func(r *Room) { r.clock = c } }

func WithRecorder(rec Recorder) Option { return func(r *Room) { r.recorder = rec } }

// WithRand seeds the synthetic bidders, for reproducible rooms
func WithRand(rng *rand.Rand) Option { return func(r *Room) { r.rng = rng } }

// WithBidder replaces the synthetic engine
func WithBidder(b Bidder) Option { return func(r *Room) { r.synth = b } }

// WithOnEmpty registers a callback invoked from the room loop once the last
// connection leaves a room that has not started bidding.
func WithOnEmpty(fn func(code string)) Option { return func(r *Room) { r.onEmpty = fn } }

type Room struct {
	code      string
	createdAt time.Time
	cfg       Config
	clock     clockwork.Clock
	recorder  Recorder
	rng       *rand.Rand
	synth     Bidder
	onEmpty   func(code string)

	// Everything below is owned by the loop goroutine
	phase        models.Phase
	frozen       bool
	teams        []*models.Team
	teamByID     map[string]*models.Team
	items        []*models.Item
	nextItem     int
	open         *models.Item
	currentPrice decimal.Decimal
	leaderID     string
	bidLog       []models.BidRecord
	countdown    int
	pausedBy     string
	pauseLeft    int
	lastSet      string
	sessions     *sessionRegistry
	ticker       clockwork.Ticker
	ticks        int
	resultsSent  bool
	results      []scoring.TeamResult

	commands     chan func()
	quit         chan struct{}
	done         chan struct{}
	closeOnce    sync.Once
	lastActivity atomic.Int64
}

// New creates a room in the lobby phase. Call Run to start its loop.
func New(code string, cfg Config, cat catalogue.Catalogue, opts ...Option) *Room {
	r := &Room{
		code:     code,
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		recorder: noopRecorder{},
		phase:    models.PhaseLobby,
		teamByID: make(map[string]*models.Team),
		items:    cat.FreshItems(),
		sessions: newSessionRegistry(),
		commands: make(chan func(), 256),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.synth == nil {
		r.synth = synthetic.NewEngine(cfg.Rules, cfg.Synthetic, r.rng)
	}
	r.createdAt = r.clock.Now()
	r.touch()

	for _, f := range cat.Franchises {
		team := models.NewTeam(f.ID, f.Name, cfg.Rules.StartingBudget, cfg.Rules.MaxRoster, cfg.StrategicTimeoutsPerTeam)
		r.teams = append(r.teams, team)
		r.teamByID[team.ID] = team
	}
	return r
}

func (r *Room) Code() string { return r.code }

// Done is closed once the loop has exited
func (r *Room) Done() <-chan struct{} { return r.done }

// LastActivity is safe to call from any goroutine
func (r *Room) LastActivity() time.Time {
	return time.Unix(0, r.lastActivity.Load())
}

// Run processes commands and ticks until ctx is cancelled or Close is called
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)
	log.Info().Str("room_code", r.code).Msg("room loop started")

	for {
		var tickC <-chan time.Time
		if r.ticker != nil {
			tickC = r.ticker.Chan()
		}

		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case <-r.quit:
			r.shutdown()
			return
		case cmd := <-r.commands:
			cmd()
		case <-tickC:
			r.tick()
		}
	}
}

// Close stops the loop. It does not wait, so it is safe to call from the
// loop itself.
func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.quit) })
}

// CloseWithNotice tells every connected participant the room is closing,
// then stops the loop. A room that already stopped is not an error.
func (r *Room) CloseWithNotice(ctx context.Context, reason string) error {
	err := r.do(ctx, func() error {
		log.Info().Str("room_code", r.code).Str("reason", reason).Msg("closing room")
		r.broadcast(protocol.EventError, protocol.ErrorPayload{Code: ErrorCode(ErrRoomClosed), Message: reason})
		r.saveSnapshot()
		return nil
	})
	r.Close()
	if errors.Is(err, ErrRoomClosed) {
		return nil
	}
	return err
}

func (r *Room) shutdown() {
	r.stopTicker()
	for _, s := range r.sessions.sessions {
		if s.graceTimer != nil {
			s.graceTimer.Stop()
		}
	}
	log.Info().Str("room_code", r.code).Str("phase", string(r.phase)).Msg("room loop stopped")
}

// do runs fn on the loop and waits for its result
func (r *Room) do(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	cmd := func() { reply <- fn() }

	select {
	case r.commands <- cmd:
	case <-r.quit:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-r.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting for it to run
func (r *Room) post(fn func()) {
	select {
	case r.commands <- fn:
	case <-r.quit:
	}
}

func (r *Room) touch() {
	r.lastActivity.Store(r.clock.Now().UnixNano())
}

func (r *Room) startTicker() {
	if r.ticker == nil {
		r.ticker = r.clock.NewTicker(r.cfg.TickInterval)
	}
}

func (r *Room) stopTicker() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}

// Join adds a participant. An identity that already holds a session is
// treated as a reconnect.
func (r *Room) Join(ctx context.Context, conn Conn, identity, displayName string) (JoinResult, error) {
	var res JoinResult
	err := r.do(ctx, func() (err error) {
		res, err = r.join(conn, identity, displayName)
		return err
	})
	return res, err
}

// Reconnect rebinds a new connection to an existing session
func (r *Room) Reconnect(ctx context.Context, conn Conn, identity string) (JoinResult, error) {
	var res JoinResult
	err := r.do(ctx, func() (err error) {
		res, err = r.reconnect(conn, identity)
		return err
	})
	return res, err
}

func (r *Room) SelectTeam(ctx context.Context, connID, teamID string) error {
	return r.do(ctx, func() error { return r.selectTeam(connID, teamID) })
}

func (r *Room) StartAuction(ctx context.Context, connID string) error {
	return r.do(ctx, func() error { return r.startAuction(connID) })
}

func (r *Room) Bid(ctx context.Context, connID, teamID string, amount decimal.Decimal) error {
	return r.do(ctx, func() error { return r.humanBid(connID, teamID, amount) })
}

func (r *Room) StrategicTimeout(ctx context.Context, connID, teamID string) error {
	return r.do(ctx, func() error { return r.strategicTimeout(connID, teamID) })
}

func (r *Room) MarkUnsold(ctx context.Context, connID string) error {
	return r.do(ctx, func() error { return r.markUnsold(connID) })
}

func (r *Room) RemoveParticipant(ctx context.Context, connID, teamID string) error {
	return r.do(ctx, func() error { return r.removeParticipant(connID, teamID) })
}

func (r *Room) Leave(ctx context.Context, connID string) error {
	return r.do(ctx, func() error { return r.leave(connID) })
}

// Disconnect reports a lost connection. It never blocks on the room.
func (r *Room) Disconnect(connID string) {
	go r.post(func() { r.disconnect(connID) })
}

func (r *Room) Snapshot(ctx context.Context) (protocol.RoomSnapshot, error) {
	var snap protocol.RoomSnapshot
	err := r.do(ctx, func() error {
		snap = r.snapshot()
		return nil
	})
	return snap, err
}

func (r *Room) Summary(ctx context.Context) (protocol.RoomSummary, error) {
	var sum protocol.RoomSummary
	err := r.do(ctx, func() error {
		sum = r.summary()
		return nil
	})
	return sum, err
}

// Results returns the final standings once the room has completed
func (r *Room) Results(ctx context.Context) ([]scoring.TeamResult, error) {
	var out []scoring.TeamResult
	err := r.do(ctx, func() error {
		if r.phase != models.PhaseCompleted {
			return ErrWrongPhase
		}
		out = append(out, r.results...)
		return nil
	})
	return out, err
}
