package room

import (
	"errors"

	"github.com/mcdev12/auctionroom/go/internal/auction/bidding"
)

// Session errors
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrRoomNotJoinable = errors.New("room is not accepting participants")
	ErrSessionExpired  = errors.New("session expired")
	ErrNotInRoom       = errors.New("connection has not joined this room")
	ErrRoomClosed      = errors.New("room closed")
)

// Validation errors
var (
	ErrTeamTaken             = errors.New("team already taken")
	ErrUnknownTeam           = errors.New("unknown team")
	ErrNotHost               = errors.New("only the host can do that")
	ErrWrongPhase            = errors.New("action not allowed in the current phase")
	ErrNotEnoughParticipants = errors.New("not enough participants with a team")
	ErrNoOpenItem            = errors.New("no item is open for bidding")
	ErrNotYourTeam           = errors.New("team is not bound to this participant")
	ErrAlreadyLeading        = errors.New("team already holds the highest bid")
	ErrNoTimeoutsLeft        = errors.New("no strategic timeouts left")
	ErrAlreadyPaused         = errors.New("auction is already paused")
)

// ErrRoomFrozen is returned for every action once an invariant violation
// has frozen the room
var ErrRoomFrozen = errors.New("room is frozen")

// ErrInvariant wraps the violation that froze a room
var ErrInvariant = errors.New("auction invariant violated")

// ErrorCode maps an error to the short code sent to clients
func ErrorCode(err error) string {
	var rej *bidding.Rejection
	if errors.As(err, &rej) {
		return rej.Code()
	}

	codes := []struct {
		err  error
		code string
	}{
		{ErrRoomNotFound, "room_not_found"},
		{ErrRoomFull, "room_full"},
		{ErrRoomNotJoinable, "room_not_joinable"},
		{ErrSessionExpired, "session_expired"},
		{ErrNotInRoom, "not_in_room"},
		{ErrRoomClosed, "room_closed"},
		{ErrTeamTaken, "team_taken"},
		{ErrUnknownTeam, "unknown_team"},
		{ErrNotHost, "not_host"},
		{ErrWrongPhase, "wrong_phase"},
		{ErrNotEnoughParticipants, "not_enough_participants"},
		{ErrNoOpenItem, "no_open_item"},
		{ErrNotYourTeam, "not_your_team"},
		{ErrAlreadyLeading, "already_leading"},
		{ErrNoTimeoutsLeft, "no_timeouts_left"},
		{ErrAlreadyPaused, "already_paused"},
		{ErrRoomFrozen, "room_frozen"},
		{ErrInvariant, "room_frozen"},
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
