package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/auction/room"
	"github.com/rs/zerolog/log"
)

// client routes one connection's messages to the room it has joined.
// It is only used from the connection's read goroutine.
type client struct {
	conn    *Connection
	gateway *Gateway
	room    *room.Room
}

func (c *client) roomCode() string {
	if c.room == nil {
		return ""
	}
	return c.room.Code()
}

// handle decodes and executes one inbound frame
func (c *client) handle(message []byte) {
	msg, err := protocol.DecodeClientMessage(message)
	if err != nil {
		var decodeErr *protocol.DecodeError
		code := "bad_request"
		if errors.As(err, &decodeErr) && errors.Is(err, protocol.ErrUnknownMessage) {
			code = "unknown_message"
		}
		c.sendError(code, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.gateway.ctx, c.gateway.config.RequestTimeout)
	defer cancel()

	if err := c.dispatch(ctx, msg); err != nil {
		c.reject(msg, err)
	}
}

func (c *client) dispatch(ctx context.Context, msg protocol.ClientMessage) error {
	switch m := msg.(type) {
	case *protocol.CreateRoom:
		return c.createRoom(ctx, m)
	case *protocol.JoinRoom:
		return c.joinRoom(ctx, m)
	case *protocol.ListRooms:
		c.send(protocol.EventRooms, protocol.RoomsPayload{Rooms: c.gateway.manager.List(ctx)})
		return nil
	case *protocol.LeaveRoom:
		r, err := c.current()
		if err != nil {
			return err
		}
		c.room = nil
		return r.Leave(ctx, c.conn.ID())
	}

	r, err := c.current()
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case *protocol.SelectTeam:
		return r.SelectTeam(ctx, c.conn.ID(), m.TeamID)
	case *protocol.StartAuction:
		return r.StartAuction(ctx, c.conn.ID())
	case *protocol.PlaceBid:
		return r.Bid(ctx, c.conn.ID(), m.TeamID, m.Amount)
	case *protocol.StrategicTimeout:
		return r.StrategicTimeout(ctx, c.conn.ID(), m.TeamID)
	case *protocol.MarkUnsold:
		return r.MarkUnsold(ctx, c.conn.ID())
	case *protocol.RemoveParticipant:
		return r.RemoveParticipant(ctx, c.conn.ID(), m.TeamID)
	}
	return protocol.ErrUnknownMessage
}

func (c *client) current() (*room.Room, error) {
	if c.room == nil {
		return nil, room.ErrNotInRoom
	}
	return c.room, nil
}

func (c *client) createRoom(ctx context.Context, m *protocol.CreateRoom) error {
	identity := m.IdentityToken
	if identity == "" {
		identity = uuid.New().String()
	}
	c.leaveCurrent(ctx)

	r, res, err := c.gateway.manager.CreateRoom(ctx, c.conn, identity, m.HostName)
	if err != nil {
		return err
	}
	c.room = r

	snap, err := r.Snapshot(ctx)
	if err != nil {
		return err
	}
	c.send(protocol.EventRoomCreated, protocol.RoomCreatedPayload{
		RoomCode:  r.Code(),
		SessionID: res.SessionID,
		Room:      snap,
	})
	log.Info().
		Str("room_code", r.Code()).
		Str("connection_id", c.conn.ID()).
		Msg("room created")
	return nil
}

func (c *client) joinRoom(ctx context.Context, m *protocol.JoinRoom) error {
	r, err := c.gateway.manager.Get(m.RoomCode)
	if err != nil {
		return err
	}
	if c.room != r {
		c.leaveCurrent(ctx)
	}

	if m.IsReconnecting {
		_, err = r.Reconnect(ctx, c.conn, m.IdentityToken)
	} else {
		_, err = r.Join(ctx, c.conn, m.IdentityToken, m.DisplayName)
	}
	if err != nil {
		return err
	}
	c.room = r
	return nil
}

// leaveCurrent drops the connection's previous room before it moves on
func (c *client) leaveCurrent(ctx context.Context) {
	if c.room == nil {
		return
	}
	if err := c.room.Leave(ctx, c.conn.ID()); err != nil && !errors.Is(err, room.ErrNotInRoom) {
		log.Warn().
			Err(err).
			Str("room_code", c.room.Code()).
			Str("connection_id", c.conn.ID()).
			Msg("failed to leave previous room")
	}
	c.room = nil
}

// closed reports the lost socket to the room; the session keeps its grace
// period
func (c *client) closed() {
	if c.room != nil {
		c.room.Disconnect(c.conn.ID())
		c.room = nil
	}
}

func (c *client) reject(msg protocol.ClientMessage, err error) {
	if errors.Is(err, room.ErrRoomClosed) || errors.Is(err, room.ErrSessionExpired) {
		c.room = nil
	}

	if errors.Is(err, room.ErrTeamTaken) {
		teamID := ""
		if sel, ok := msg.(*protocol.SelectTeam); ok {
			teamID = sel.TeamID
		}
		c.send(protocol.EventTeamTaken, protocol.TeamTakenPayload{TeamID: teamID, Message: err.Error()})
		return
	}

	code := room.ErrorCode(err)
	if code == "internal" {
		log.Error().
			Err(err).
			Str("room_code", c.roomCode()).
			Str("connection_id", c.conn.ID()).
			Str("message_type", string(msg.Type())).
			Msg("failed to handle client message")
	}
	c.sendError(code, err.Error())
}

func (c *client) sendError(code, message string) {
	c.write(protocol.ErrorEvent(c.roomCode(), code, message))
}

func (c *client) send(t protocol.EventType, payload any) {
	ev, err := protocol.NewEvent(c.roomCode(), t, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(t)).Msg("failed to build event")
		return
	}
	c.write(ev)
}

func (c *client) write(ev *protocol.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("failed to marshal event")
		return
	}
	c.conn.Send(data)
}
