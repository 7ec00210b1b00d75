// Package gateway exposes auction rooms over WebSocket and a small REST
// surface. Each socket becomes a room.Conn; rooms push events through it and
// the gateway turns inbound frames into room commands.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/room"
	"github.com/rs/zerolog/log"
)

// SnapshotSource serves the last known snapshot of rooms that are no longer
// live, e.g. persistence.SnapshotCache
type SnapshotSource interface {
	Snapshot(ctx context.Context, roomCode string) (protocol.RoomSnapshot, error)
}

// Config holds configuration for the auction gateway
type Config struct {
	Connection     ConnectionConfig
	RequestTimeout time.Duration
}

// DefaultConfig returns default configuration for the auction gateway
func DefaultConfig() Config {
	return Config{
		Connection:     DefaultConnectionConfig(),
		RequestTimeout: 5 * time.Second,
	}
}

// Gateway accepts WebSocket connections and serves room state over HTTP
type Gateway struct {
	manager   *room.Manager
	snapshots SnapshotSource
	config    Config
	upgrader  websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	connections map[string]*Connection
}

// NewGateway creates a gateway over manager. snapshots may be nil.
func NewGateway(manager *room.Manager, snapshots SnapshotSource, config Config) *Gateway {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if config.Connection.SendBuffer <= 0 {
		config.Connection.SendBuffer = DefaultConnectionConfig().SendBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		manager:   manager,
		snapshots: snapshots,
		config:    config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.Connection.ReadBufferSize,
			WriteBufferSize: config.Connection.WriteBufferSize,
			CheckOrigin:     config.Connection.CheckOrigin,
		},
		ctx:         ctx,
		cancel:      cancel,
		connections: make(map[string]*Connection),
	}
}

// HandleAuctionConnection upgrades the request and serves the socket until
// it closes
func (g *Gateway) HandleAuctionConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	conn := newConnection(ws, g.config.Connection)
	g.register(conn)

	cl := &client{conn: conn, gateway: g}
	go conn.writePump()
	go func() {
		conn.readPump(cl.handle)
		cl.closed()
		g.unregister(conn)
	}()

	log.Info().
		Str("connection_id", conn.ID()).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")
}

func (g *Gateway) register(conn *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connections[conn.ID()] = conn

	log.Debug().
		Str("connection_id", conn.ID()).
		Int("total_connections", len(g.connections)).
		Msg("connection registered")
}

func (g *Gateway) unregister(conn *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.connections[conn.ID()]; !ok {
		return
	}
	delete(g.connections, conn.ID())

	log.Info().
		Str("connection_id", conn.ID()).
		Dur("connected_for", time.Since(conn.ConnectedAt)).
		Msg("connection unregistered")
}

// Stats reports live connection and room counts
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

func (g *Gateway) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Stats{Connections: len(g.connections), Rooms: g.manager.Count()}
}

// Shutdown closes every connection. Rooms are shut down by their manager.
func (g *Gateway) Shutdown() {
	g.cancel()

	g.mu.RLock()
	conns := make([]*Connection, 0, len(g.connections))
	for _, c := range g.connections {
		conns = append(conns, c)
	}
	g.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
	log.Info().Int("connections", len(conns)).Msg("gateway connections closed")
}

// roomSnapshot returns the live room's snapshot, falling back to the
// snapshot source for rooms that have already been removed
func (g *Gateway) roomSnapshot(ctx context.Context, code string) (protocol.RoomSnapshot, error) {
	r, err := g.manager.Get(code)
	if err == nil {
		snap, err := r.Snapshot(ctx)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, room.ErrRoomClosed) {
			return protocol.RoomSnapshot{}, fmt.Errorf("snapshot room %s: %w", code, err)
		}
	}
	if g.snapshots == nil {
		return protocol.RoomSnapshot{}, room.ErrRoomNotFound
	}
	return g.snapshots.Snapshot(ctx, room.NormalizeCode(code))
}
