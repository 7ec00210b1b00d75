package persistence

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/scoring"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Config struct {
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration // per attempt
}

func DefaultConfig() Config {
	return Config{
		QueueSize:  1024,
		MaxRetries: 3,
		RetryDelay: time.Second,
		Timeout:    5 * time.Second,
	}
}

type job struct {
	kind     string
	roomCode string
	apply    func(ctx context.Context, s Store) error
}

// Writer adapts a Store to the room's fire-and-forget recorder callbacks.
// Jobs are applied in order by one worker; a full queue drops the job.
type Writer struct {
	store  Store
	config Config
	clock  clockwork.Clock
	jobs   chan job

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	applied   atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
	lastWrite atomic.Int64 // unix nanos of the last successful apply
}

// WriterStats is a point-in-time view of the writer's counters
type WriterStats struct {
	Running   bool      `json:"running"`
	Queued    int       `json:"queued"`
	Applied   uint64    `json:"applied"`
	Failed    uint64    `json:"failed"`
	Dropped   uint64    `json:"dropped"`
	LastWrite time.Time `json:"last_write,omitempty"`
}

func NewWriter(store Store, cfg Config, clock clockwork.Clock) *Writer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Writer{
		store:    store,
		config:   cfg,
		clock:    clock,
		jobs:     make(chan job, cfg.QueueSize),
		stopChan: make(chan struct{}),
	}
}

func (w *Writer) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("persistence writer already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Int("queue_size", w.config.QueueSize).
		Int("max_retries", w.config.MaxRetries).
		Msg("persistence writer started")
	return nil
}

// Stop applies whatever is still queued, then returns
func (w *Writer) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("persistence writer not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	log.Info().Msg("persistence writer stopped")
	return nil
}

func (w *Writer) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			w.drain(ctx)
			return
		case j := <-w.jobs:
			w.process(ctx, j)
		}
	}
}

func (w *Writer) drain(ctx context.Context) {
	for {
		select {
		case j := <-w.jobs:
			w.process(ctx, j)
		default:
			return
		}
	}
}

func (w *Writer) process(ctx context.Context, j job) {
	err := w.applyWithRetry(ctx, j)
	if err == nil {
		w.applied.Add(1)
		w.lastWrite.Store(w.clock.Now().UnixNano())
		return
	}
	w.failed.Add(1)
	log.Error().
		Err(err).
		Str("room_code", j.roomCode).
		Str("kind", j.kind).
		Msg("failed to persist")
}

func (w *Writer) applyWithRetry(ctx context.Context, j job) error {
	var lastErr error

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.clock.After(w.config.RetryDelay * time.Duration(attempt)):
			}
		}

		attemptCtx, cancel := w.attemptContext(ctx)
		err := j.apply(attemptCtx, w.store)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = err
		log.Warn().
			Err(err).
			Str("room_code", j.roomCode).
			Str("kind", j.kind).
			Int("attempt", attempt+1).
			Msg("persist failed, retrying")
	}

	return fmt.Errorf("failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}

func (w *Writer) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.config.Timeout > 0 {
		return context.WithTimeout(ctx, w.config.Timeout)
	}
	return context.WithCancel(ctx)
}

func (w *Writer) enqueue(j job) {
	select {
	case w.jobs <- j:
	default:
		w.dropped.Add(1)
		log.Warn().
			Str("room_code", j.roomCode).
			Str("kind", j.kind).
			Msg("persistence queue full, dropping")
	}
}

func (w *Writer) Stats() WriterStats {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	stats := WriterStats{
		Running: running,
		Queued:  len(w.jobs),
		Applied: w.applied.Load(),
		Failed:  w.failed.Load(),
		Dropped: w.dropped.Load(),
	}
	if last := w.lastWrite.Load(); last > 0 {
		stats.LastWrite = time.Unix(0, last).UTC()
	}
	return stats
}

func (w *Writer) SaveRoomSnapshot(roomCode string, snapshot protocol.RoomSnapshot) {
	w.enqueue(job{
		kind:     "snapshot",
		roomCode: roomCode,
		apply: func(ctx context.Context, s Store) error {
			return s.SaveRoomSnapshot(ctx, roomCode, snapshot)
		},
	})
}

func (w *Writer) RecordPurchase(roomCode string, item models.Item, team models.Team, price decimal.Decimal) {
	record := PurchaseRecord{
		RoomCode:    roomCode,
		ItemID:      item.ID,
		ItemName:    item.Name,
		Category:    item.Category,
		Overseas:    item.Overseas,
		TeamID:      team.ID,
		TeamName:    team.Name,
		Price:       price,
		Remaining:   team.RemainingBudget,
		PurchasedAt: w.clock.Now(),
	}
	for _, p := range team.Purchases {
		if p.ItemID == item.ID {
			record.PurchasedAt = p.PurchasedAt
		}
	}
	w.enqueue(job{
		kind:     "purchase",
		roomCode: roomCode,
		apply: func(ctx context.Context, s Store) error {
			return s.RecordPurchase(ctx, record)
		},
	})
}

func (w *Writer) SaveFinalResults(roomCode string, results []scoring.TeamResult) {
	w.enqueue(job{
		kind:     "results",
		roomCode: roomCode,
		apply: func(ctx context.Context, s Store) error {
			return s.SaveFinalResults(ctx, roomCode, results)
		},
	})
}
