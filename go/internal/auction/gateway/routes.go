package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/auctionroom/go/internal/auction/persistence"
	"github.com/mcdev12/auctionroom/go/internal/auction/room"
	"github.com/rs/zerolog/log"
)

// Routes returns a router serving only the gateway's endpoints
func (g *Gateway) Routes() chi.Router {
	r := chi.NewRouter()
	g.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the gateway on r:
//
//	GET /ws/auction             WebSocket upgrade
//	GET /api/rooms              room listing
//	GET /api/rooms/{code}/state room snapshot
//	GET /health
//	GET /info
func (g *Gateway) RegisterRoutes(r chi.Router) {
	r.Get("/ws/auction", g.HandleAuctionConnection)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
	r.Get("/info", g.HandleInfo)

	r.Route("/api/rooms", func(r chi.Router) {
		r.Get("/", g.HandleListRooms)
		r.Get("/{code}/state", g.HandleGetRoomState)
	})
}

// HandleListRooms handles GET /api/rooms
func (g *Gateway) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": g.manager.List(r.Context())})
}

// HandleGetRoomState handles GET /api/rooms/{code}/state
func (g *Gateway) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		http.Error(w, "room code is required", http.StatusBadRequest)
		return
	}

	snap, err := g.roomSnapshot(r.Context(), code)
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, persistence.ErrNotFound):
		http.Error(w, "room not found", http.StatusNotFound)
		return
	case err != nil:
		log.Error().Err(err).Str("room_code", code).Msg("failed to get room state")
		http.Error(w, "failed to get room state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleInfo handles GET /info
func (g *Gateway) HandleInfo(w http.ResponseWriter, r *http.Request) {
	stats := g.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"service":     "auction-gateway",
		"version":     "1.0.0",
		"connections": stats.Connections,
		"rooms":       stats.Rooms,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
