package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionroom/go/internal/auction/scoring"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/shopspring/decimal"
)

// EventType identifies an engine to client message
type EventType string

const (
	EventRoomCreated             EventType = "room-created"
	EventJoinedRoom              EventType = "joined-room"
	EventReconnected             EventType = "reconnected"
	EventRoomUpdate              EventType = "room-update"
	EventTeamSelected            EventType = "team-selected"
	EventTeamTaken               EventType = "team-taken-error"
	EventCountdown               EventType = "countdown"
	EventAuctionStarted          EventType = "auction-started"
	EventAuctionState            EventType = "auction-state"
	EventPlayerSold              EventType = "player-sold"
	EventPlayerUnsold            EventType = "player-unsold"
	EventAuctionComplete         EventType = "auction-complete"
	EventParticipantDisconnected EventType = "participant-disconnected"
	EventParticipantReconnected  EventType = "participant-reconnected"
	EventParticipantRemoved      EventType = "participant-removed"
	EventRooms                   EventType = "rooms"
	EventError                   EventType = "error"
)

// Event is the wire shape of every outbound message
type Event struct {
	ID        string          `json:"id"`
	RoomCode  string          `json:"room_code,omitempty"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type RoomCreatedPayload struct {
	RoomCode  string       `json:"room_code"`
	SessionID string       `json:"session_id"`
	Room      RoomSnapshot `json:"room"`
}

// JoinedPayload is sent for both joined-room and reconnected
type JoinedPayload struct {
	SessionID string       `json:"session_id"`
	TeamID    string       `json:"team_id,omitempty"`
	IsHost    bool         `json:"is_host"`
	Room      RoomSnapshot `json:"room"`
}

type RoomUpdatePayload struct {
	Room RoomSnapshot `json:"room"`
}

type TeamSelectedPayload struct {
	TeamID      string `json:"team_id"`
	TeamName    string `json:"team_name"`
	DisplayName string `json:"display_name"`
}

type TeamTakenPayload struct {
	TeamID  string `json:"team_id"`
	Message string `json:"message"`
}

type CountdownPayload struct {
	SecondsRemaining int `json:"seconds_remaining"`
}

type AuctionStartedPayload struct {
	TotalItems int          `json:"total_items"`
	FirstItem  *models.Item `json:"first_item,omitempty"`
}

type PlayerSoldPayload struct {
	Item     models.Item     `json:"item"`
	TeamID   string          `json:"team_id"`
	TeamName string          `json:"team_name"`
	Price    decimal.Decimal `json:"price"`
}

type PlayerUnsoldPayload struct {
	Item models.Item `json:"item"`
}

type AuctionCompletePayload struct {
	Results []scoring.TeamResult `json:"results"`
}

type ParticipantPayload struct {
	DisplayName string `json:"display_name"`
	TeamID      string `json:"team_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type RoomsPayload struct {
	Rooms []RoomSummary `json:"rooms"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent wraps payload in an envelope for roomCode
func NewEvent(roomCode string, t EventType, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		RoomCode:  roomCode,
		Type:      t,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// MustEvent is NewEvent for payloads that are known to marshal
func MustEvent(roomCode string, t EventType, payload any) *Event {
	ev, err := NewEvent(roomCode, t, payload)
	if err != nil {
		panic(err)
	}
	return ev
}

// ErrorEvent builds an error message for a single connection
func ErrorEvent(roomCode, code, message string) *Event {
	return MustEvent(roomCode, EventError, ErrorPayload{Code: code, Message: message})
}

// DecodeData unmarshals the event payload into out
func (e *Event) DecodeData(out any) error {
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
