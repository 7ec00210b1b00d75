// Package protocol defines the messages exchanged between auction clients and
// the room engine. Both directions are closed sets of message types; anything
// else is rejected at the boundary.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ClientMessageType identifies a client to engine message
type ClientMessageType string

const (
	TypeCreateRoom        ClientMessageType = "create-room"
	TypeJoinRoom          ClientMessageType = "join-room"
	TypeSelectTeam        ClientMessageType = "select-team"
	TypeStartAuction      ClientMessageType = "start-auction"
	TypeBid               ClientMessageType = "bid"
	TypeStrategicTimeout  ClientMessageType = "strategic-timeout"
	TypeMarkUnsold        ClientMessageType = "mark-unsold"
	TypeListRooms         ClientMessageType = "list-rooms"
	TypeLeaveRoom         ClientMessageType = "leave-room"
	TypeRemoveParticipant ClientMessageType = "remove-participant"
)

// ClientEnvelope is the wire shape of every inbound message
type ClientEnvelope struct {
	Type ClientMessageType `json:"type"`
	Data json.RawMessage   `json:"data,omitempty"`
}

// ClientMessage is implemented only by the message types in this file
type ClientMessage interface {
	Type() ClientMessageType
	validate() error
}

type CreateRoom struct {
	HostName      string `json:"host_name"`
	IdentityToken string `json:"identity_token"`
}

type JoinRoom struct {
	RoomCode       string `json:"room_code"`
	DisplayName    string `json:"display_name"`
	IdentityToken  string `json:"identity_token"`
	IsReconnecting bool   `json:"is_reconnecting"`
}

type SelectTeam struct {
	TeamID string `json:"team_id"`
}

type StartAuction struct{}

type PlaceBid struct {
	TeamID string          `json:"team_id"`
	Amount decimal.Decimal `json:"amount"`
}

type StrategicTimeout struct {
	TeamID string `json:"team_id"`
}

type MarkUnsold struct{}

type ListRooms struct{}

type LeaveRoom struct{}

// RemoveParticipant lets the host drop an unresponsive participant
type RemoveParticipant struct {
	TeamID string `json:"team_id"`
}

func (CreateRoom) Type() ClientMessageType        { return TypeCreateRoom }
func (JoinRoom) Type() ClientMessageType          { return TypeJoinRoom }
func (SelectTeam) Type() ClientMessageType        { return TypeSelectTeam }
func (StartAuction) Type() ClientMessageType      { return TypeStartAuction }
func (PlaceBid) Type() ClientMessageType          { return TypeBid }
func (StrategicTimeout) Type() ClientMessageType  { return TypeStrategicTimeout }
func (MarkUnsold) Type() ClientMessageType        { return TypeMarkUnsold }
func (ListRooms) Type() ClientMessageType         { return TypeListRooms }
func (LeaveRoom) Type() ClientMessageType         { return TypeLeaveRoom }
func (RemoveParticipant) Type() ClientMessageType { return TypeRemoveParticipant }

func (m CreateRoom) validate() error {
	return required(TypeCreateRoom, "host_name", m.HostName)
}

func (m JoinRoom) validate() error {
	if err := required(TypeJoinRoom, "room_code", m.RoomCode); err != nil {
		return err
	}
	if err := required(TypeJoinRoom, "identity_token", m.IdentityToken); err != nil {
		return err
	}
	if m.IsReconnecting {
		return nil
	}
	return required(TypeJoinRoom, "display_name", m.DisplayName)
}

func (m SelectTeam) validate() error { return required(TypeSelectTeam, "team_id", m.TeamID) }

func (StartAuction) validate() error { return nil }

func (m PlaceBid) validate() error {
	if err := required(TypeBid, "team_id", m.TeamID); err != nil {
		return err
	}
	if !m.Amount.IsPositive() {
		return &DecodeError{Type: string(TypeBid), Reason: "amount must be positive", Err: ErrInvalidField}
	}
	return nil
}

func (m StrategicTimeout) validate() error {
	return required(TypeStrategicTimeout, "team_id", m.TeamID)
}

func (MarkUnsold) validate() error { return nil }
func (ListRooms) validate() error  { return nil }
func (LeaveRoom) validate() error  { return nil }

func (m RemoveParticipant) validate() error {
	return required(TypeRemoveParticipant, "team_id", m.TeamID)
}

func required(t ClientMessageType, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &DecodeError{Type: string(t), Reason: field + " is required", Err: ErrMissingField}
	}
	return nil
}

// DecodeClientMessage parses and validates one inbound frame
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var env ClientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Reason: "invalid envelope", Err: fmt.Errorf("%w: %v", ErrMalformedMessage, err)}
	}

	var msg ClientMessage
	switch env.Type {
	case TypeCreateRoom:
		msg = &CreateRoom{}
	case TypeJoinRoom:
		msg = &JoinRoom{}
	case TypeSelectTeam:
		msg = &SelectTeam{}
	case TypeStartAuction:
		msg = &StartAuction{}
	case TypeBid:
		msg = &PlaceBid{}
	case TypeStrategicTimeout:
		msg = &StrategicTimeout{}
	case TypeMarkUnsold:
		msg = &MarkUnsold{}
	case TypeListRooms:
		msg = &ListRooms{}
	case TypeLeaveRoom:
		msg = &LeaveRoom{}
	case TypeRemoveParticipant:
		msg = &RemoveParticipant{}
	default:
		return nil, &DecodeError{Type: string(env.Type), Reason: "unknown message type", Err: ErrUnknownMessage}
	}

	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(env.Data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(msg); err != nil {
			return nil, &DecodeError{Type: string(env.Type), Reason: "invalid data", Err: fmt.Errorf("%w: %v", ErrMalformedMessage, err)}
		}
	}

	if err := msg.validate(); err != nil {
		return nil, err
	}
	return msg, nil
}
