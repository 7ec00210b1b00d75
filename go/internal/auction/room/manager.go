package room

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/catalogue"
	"github.com/rs/zerolog/log"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// Manager is the registry of live rooms. The lock only guards the map;
// all room state lives on each room's own loop.
type Manager struct {
	cfg        Config
	catalogue  catalogue.Catalogue
	clock      clockwork.Clock
	recorder   Recorder
	roomOpts   []Option
	newCode    func() string
	instanceID string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	rooms map[string]*Room
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

func WithManagerClock(c clockwork.Clock) ManagerOption { return func(m *Manager) { m.clock = c } }

func WithManagerRecorder(rec Recorder) ManagerOption {
	return func(m *Manager) { m.recorder = rec }
}

// WithRoomOptions appends options applied to every room the manager creates
func WithRoomOptions(opts ...Option) ManagerOption {
	return func(m *Manager) { m.roomOpts = append(m.roomOpts, opts...) }
}

// WithCodeGenerator replaces the random room code source
func WithCodeGenerator(gen func() string) ManagerOption {
	return func(m *Manager) { m.newCode = gen }
}

func NewManager(cfg Config, cat catalogue.Catalogue, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid room config: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:        cfg,
		catalogue:  cat,
		clock:      clockwork.NewRealClock(),
		recorder:   noopRecorder{},
		instanceID: uuid.New().String()[:8],
		ctx:        ctx,
		cancel:     cancel,
		rooms:      make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.newCode == nil {
		gen, err := nanoid.CustomASCII(codeAlphabet, codeLength)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create room code generator: %w", err)
		}
		m.newCode = gen
	}
	return m, nil
}

// Start runs the idle sweeper until ctx is cancelled or Shutdown is called
func (m *Manager) Start(ctx context.Context) {
	if m.cfg.SweepInterval <= 0 || m.cfg.IdleTimeout <= 0 {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := m.clock.NewTicker(m.cfg.SweepInterval)
		defer ticker.Stop()

		log.Info().
			Str("instance", m.instanceID).
			Dur("sweep_interval", m.cfg.SweepInterval).
			Dur("idle_timeout", m.cfg.IdleTimeout).
			Msg("room sweeper started")

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.ctx.Done():
				return
			case <-ticker.Chan():
				m.sweep()
			}
		}
	}()
}

// sweep closes rooms with no activity inside the idle timeout
func (m *Manager) sweep() {
	cutoff := m.clock.Now().Add(-m.cfg.IdleTimeout)

	m.mu.RLock()
	var idle []string
	for code, r := range m.rooms {
		if r.LastActivity().Before(cutoff) {
			idle = append(idle, code)
		}
	}
	m.mu.RUnlock()

	for _, code := range idle {
		log.Info().Str("instance", m.instanceID).Str("room_code", code).Msg("closing idle room")
		m.remove(code)
	}
}

// CreateRoom opens a new room and joins its creator as host
func (m *Manager) CreateRoom(ctx context.Context, conn Conn, identity, hostName string) (*Room, JoinResult, error) {
	m.mu.Lock()
	code := m.uniqueCode()
	opts := append([]Option{
		WithClock(m.clock),
		WithRecorder(m.recorder),
		WithOnEmpty(func(code string) { go m.remove(code) }),
	}, m.roomOpts...)
	r := New(code, m.cfg, m.catalogue, opts...)
	m.rooms[code] = r
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		r.Run(m.ctx)
	}()

	log.Info().
		Str("instance", m.instanceID).
		Str("room_code", code).
		Str("host_name", hostName).
		Msg("room created")

	res, err := r.Join(ctx, conn, identity, hostName)
	if err != nil {
		m.remove(code)
		return nil, JoinResult{}, err
	}
	return r, res, nil
}

// uniqueCode must be called with the write lock held
func (m *Manager) uniqueCode() string {
	for {
		code := m.newCode()
		if _, taken := m.rooms[code]; !taken {
			return code
		}
	}
}

// Get finds a room by code, ignoring case and surrounding space
func (m *Manager) Get(code string) (*Room, error) {
	code = NormalizeCode(code)
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// List summarises every live room, newest first
func (m *Manager) List(ctx context.Context) []protocol.RoomSummary {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	out := make([]protocol.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		sum, err := r.Summary(ctx)
		if err != nil {
			continue
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Count reports the number of live rooms
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Close notifies a room's participants with reason, then removes it
func (m *Manager) Close(ctx context.Context, code, reason string) error {
	code = NormalizeCode(code)
	m.mu.RLock()
	r, ok := m.rooms[code]
	m.mu.RUnlock()
	if !ok {
		return ErrRoomNotFound
	}
	err := r.CloseWithNotice(ctx, reason)
	m.remove(code)
	return err
}

func (m *Manager) remove(code string) {
	m.mu.Lock()
	r, ok := m.rooms[code]
	delete(m.rooms, code)
	m.mu.Unlock()
	if !ok {
		return
	}
	r.Close()
	log.Info().Str("instance", m.instanceID).Str("room_code", code).Msg("room removed")
}

// Shutdown stops every room and waits for their loops to exit
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()

	m.mu.Lock()
	for code, r := range m.rooms {
		r.Close()
		delete(m.rooms, code)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Str("instance", m.instanceID).Msg("room manager stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("room manager shutdown: %w", ctx.Err())
	}
}

// NormalizeCode puts a user supplied room code in canonical form
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
