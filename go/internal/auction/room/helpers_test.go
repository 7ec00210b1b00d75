package room

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/scoring"
	"github.com/mcdev12/auctionroom/go/internal/auction/synthetic"
	"github.com/mcdev12/auctionroom/go/internal/catalogue"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id string

	mu     sync.Mutex
	events []protocol.Event
	full   bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	var ev protocol.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		panic(err)
	}
	c.events = append(c.events, ev)
	return true
}

func (c *fakeConn) ofType(t protocol.EventType) []protocol.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []protocol.Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) last(t protocol.EventType) (protocol.Event, bool) {
	evs := c.ofType(t)
	if len(evs) == 0 {
		return protocol.Event{}, false
	}
	return evs[len(evs)-1], true
}

// discardConn accepts everything without decoding it
type discardConn struct{ id string }

func (c discardConn) ID() string        { return c.id }
func (c discardConn) Send([]byte) bool { return true }

// quietBidder never bids
type quietBidder struct{}

func (quietBidder) Decide([]*models.Team, synthetic.Market) (synthetic.Bid, bool, error) {
	return synthetic.Bid{}, false, nil
}

type recordingRecorder struct {
	mu        sync.Mutex
	snapshots int
	purchases []string
	finals    int
}

func (r *recordingRecorder) SaveRoomSnapshot(string, protocol.RoomSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots++
}

func (r *recordingRecorder) RecordPurchase(_ string, item models.Item, team models.Team, _ decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purchases = append(r.purchases, item.ID+":"+team.ID)
}

func (r *recordingRecorder) SaveFinalResults(string, []scoring.TeamResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finals++
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CountdownSeconds = 2
	cfg.ItemSeconds = 5
	cfg.BidFloorSeconds = 3
	cfg.BreakSeconds = 2
	cfg.StrategicTimeoutSeconds = 4
	cfg.SnapshotEveryTicks = 0
	return cfg
}

// testCatalogue has two franchises, A and B, and items p1..pN where the
// first two are in set S1 and the rest in S2.
func testCatalogue(items int) catalogue.Catalogue {
	cat := catalogue.Catalogue{
		Franchises: []catalogue.Franchise{{ID: "A", Name: "Alpha"}, {ID: "B", Name: "Bravo"}},
	}
	for i := 1; i <= items; i++ {
		set := "S1"
		if i > 2 {
			set = "S2"
		}
		cat.Items = append(cat.Items, models.Item{
			ID:        "p" + string(rune('0'+i)),
			Name:      "Player " + string(rune('0'+i)),
			Category:  models.Categories[i%len(models.Categories)],
			Set:       set,
			BasePrice: dec("2"),
			Status:    models.ItemPending,
		})
	}
	return cat
}

type harness struct {
	room  *Room
	clock *clockwork.FakeClock
	a, b  *fakeConn
}

// newLobby builds a room with conn a (host, team A) and conn b (team B)
// without starting its loop; tests drive the loop methods directly.
func newLobby(t *testing.T, cfg Config, items int, opts ...Option) *harness {
	t.Helper()
	clock := clockwork.NewFakeClock()
	opts = append([]Option{WithClock(clock), WithBidder(quietBidder{})}, opts...)
	r := New("TEST01", cfg, testCatalogue(items), opts...)

	h := &harness{room: r, clock: clock, a: newFakeConn("conn-a"), b: newFakeConn("conn-b")}
	res, err := r.join(h.a, "identity-a", "Alice")
	require.NoError(t, err)
	require.True(t, res.IsHost)
	res, err = r.join(h.b, "identity-b", "Bob")
	require.NoError(t, err)
	require.False(t, res.IsHost)
	require.NoError(t, r.selectTeam("conn-a", "A"))
	require.NoError(t, r.selectTeam("conn-b", "B"))
	return h
}

// started advances the lobby through the pre-auction countdown
func (h *harness) started(t *testing.T) {
	t.Helper()
	require.NoError(t, h.room.startAuction("conn-a"))
	for i := 0; i < h.room.cfg.CountdownSeconds; i++ {
		h.room.tick()
	}
	require.Equal(t, models.PhaseActive, h.room.phase)
	require.NotNil(t, h.room.open)
}

func (h *harness) ticks(n int) {
	for i := 0; i < n; i++ {
		h.room.tick()
	}
}
