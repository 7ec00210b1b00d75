package room

import (
	"encoding/json"

	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/rs/zerolog/log"
)

// encode builds the envelope once so every connection gets the same bytes
func (r *Room) encode(t protocol.EventType, payload any) ([]byte, bool) {
	ev, err := protocol.NewEvent(r.code, t, payload)
	if err != nil {
		log.Error().Err(err).Str("room_code", r.code).Str("event_type", string(t)).Msg("failed to build event")
		return nil, false
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("room_code", r.code).Str("event_type", string(t)).Msg("failed to marshal event")
		return nil, false
	}
	return data, true
}

func (r *Room) broadcast(t protocol.EventType, payload any) {
	r.broadcastExcept(nil, t, payload)
}

// broadcastExcept sends to every connected session but skip
func (r *Room) broadcastExcept(skip *Session, t protocol.EventType, payload any) {
	data, ok := r.encode(t, payload)
	if !ok {
		return
	}
	for _, s := range r.sessions.connected() {
		if s == skip {
			continue
		}
		r.deliver(s, t, data)
	}
}

func (r *Room) sendTo(s *Session, t protocol.EventType, payload any) {
	if s == nil || s.conn == nil {
		return
	}
	data, ok := r.encode(t, payload)
	if !ok {
		return
	}
	r.deliver(s, t, data)
}

// deliver never blocks; a slow connection loses the message and the
// gateway reports the disconnect.
func (r *Room) deliver(s *Session, t protocol.EventType, data []byte) {
	if s.conn.Send(data) {
		return
	}
	log.Warn().
		Str("room_code", r.code).
		Str("session_id", s.ID).
		Str("event_type", string(t)).
		Msg("connection send buffer full, dropping message")
}
