package room

import (
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

func (r *Room) join(conn Conn, identity, displayName string) (JoinResult, error) {
	if r.frozen {
		return JoinResult{}, ErrRoomFrozen
	}
	if _, ok := r.sessions.byIdentity[identity]; ok {
		return r.reconnect(conn, identity)
	}
	if r.sessions.expiredIdentities[identity] {
		return JoinResult{}, ErrSessionExpired
	}
	if !r.phase.Joinable() {
		return JoinResult{}, ErrRoomNotJoinable
	}
	if r.sessions.count() >= len(r.teams) {
		return JoinResult{}, ErrRoomFull
	}

	now := r.clock.Now()
	r.touch()
	s := r.sessions.add(conn, identity, displayName, now)
	r.sessions.promoteHost()

	log.Info().
		Str("room_code", r.code).
		Str("session_id", s.ID).
		Str("display_name", displayName).
		Bool("host", s.IsHost).
		Msg("participant joined")

	snap := r.snapshot()
	r.sendTo(s, protocol.EventJoinedRoom, protocol.JoinedPayload{SessionID: s.ID, IsHost: s.IsHost, Room: snap})
	r.broadcastExcept(s, protocol.EventRoomUpdate, protocol.RoomUpdatePayload{Room: snap})
	return JoinResult{SessionID: s.ID, IsHost: s.IsHost}, nil
}

// reconnect rebinds conn to the identity's session if it is still inside
// its grace window. The deadline is checked here, on the loop, so a racing
// expiry timer cannot interleave with the rebind.
func (r *Room) reconnect(conn Conn, identity string) (JoinResult, error) {
	s, ok := r.sessions.byIdentity[identity]
	if !ok {
		return JoinResult{}, ErrSessionExpired
	}
	now := r.clock.Now()
	if !s.Connected && !s.GraceDeadline.IsZero() && !now.Before(s.GraceDeadline) {
		r.expire(s, "grace period expired")
		return JoinResult{}, ErrSessionExpired
	}

	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	wasAway := !s.Connected
	r.sessions.bind(s, conn, now)
	r.touch()

	if team, ok := r.teamByID[s.TeamID]; ok && team.Status == models.TeamAway {
		team.Status = models.TeamActive
	}

	log.Info().
		Str("room_code", r.code).
		Str("session_id", s.ID).
		Bool("was_away", wasAway).
		Msg("participant reconnected")

	r.sendTo(s, protocol.EventReconnected, protocol.JoinedPayload{
		SessionID: s.ID,
		TeamID:    s.TeamID,
		IsHost:    s.IsHost,
		Room:      r.snapshot(),
	})
	if wasAway {
		r.broadcastExcept(s, protocol.EventParticipantReconnected, protocol.ParticipantPayload{
			DisplayName: s.DisplayName,
			TeamID:      s.TeamID,
		})
	}
	return JoinResult{SessionID: s.ID, TeamID: s.TeamID, IsHost: s.IsHost}, nil
}

func (r *Room) selectTeam(connID, teamID string) error {
	if r.frozen {
		return ErrRoomFrozen
	}
	s, err := r.sessions.forConn(connID)
	if err != nil {
		return err
	}
	if r.phase != models.PhaseLobby {
		return ErrWrongPhase
	}
	team, ok := r.teamByID[teamID]
	if !ok {
		return ErrUnknownTeam
	}
	if holder := r.sessions.forTeam(teamID); holder != nil {
		if holder == s {
			return nil
		}
		return ErrTeamTaken
	}

	if prev, ok := r.teamByID[s.TeamID]; ok {
		prev.Control = models.ControlSynthetic
	}
	s.TeamID = teamID
	team.Control = models.ControlHuman
	r.touch()

	log.Info().
		Str("room_code", r.code).
		Str("session_id", s.ID).
		Str("team_id", teamID).
		Msg("team selected")

	r.broadcast(protocol.EventTeamSelected, protocol.TeamSelectedPayload{
		TeamID:      team.ID,
		TeamName:    team.Name,
		DisplayName: s.DisplayName,
	})
	r.broadcast(protocol.EventRoomUpdate, protocol.RoomUpdatePayload{Room: r.snapshot()})
	return nil
}

// disconnect handles a lost connection. In the lobby the slot is freed at
// once; later phases keep the team reserved for the grace period.
func (r *Room) disconnect(connID string) {
	s, err := r.sessions.forConn(connID)
	if err != nil {
		return
	}
	r.touch()

	if r.phase == models.PhaseLobby || r.phase == models.PhaseCompleted {
		r.release(s)
		r.checkEmpty()
		return
	}

	now := r.clock.Now()
	r.sessions.detach(s, now)
	s.GraceDeadline = now.Add(r.cfg.GracePeriod)
	id := s.ID
	s.graceTimer = r.clock.AfterFunc(r.cfg.GracePeriod, func() {
		r.post(func() { r.expireSession(id) })
	})
	if team, ok := r.teamByID[s.TeamID]; ok && team.Status == models.TeamActive {
		team.Status = models.TeamAway
	}

	log.Info().
		Str("room_code", r.code).
		Str("session_id", s.ID).
		Time("grace_deadline", s.GraceDeadline).
		Msg("participant disconnected")

	r.broadcast(protocol.EventParticipantDisconnected, protocol.ParticipantPayload{
		DisplayName: s.DisplayName,
		TeamID:      s.TeamID,
	})
	r.checkEmpty()
}

// expireSession fires from the grace timer
func (r *Room) expireSession(sessionID string) {
	s, ok := r.sessions.sessions[sessionID]
	if !ok || s.Connected || s.GraceDeadline.IsZero() {
		return
	}
	if r.clock.Now().Before(s.GraceDeadline) {
		return
	}
	r.expire(s, "grace period expired")
}

func (r *Room) leave(connID string) error {
	s, err := r.sessions.forConn(connID)
	if err != nil {
		return err
	}
	r.touch()
	if r.phase == models.PhaseLobby || r.phase == models.PhaseCompleted {
		r.release(s)
	} else {
		r.expire(s, "left the room")
	}
	r.checkEmpty()
	return nil
}

func (r *Room) removeParticipant(connID, teamID string) error {
	if r.frozen {
		return ErrRoomFrozen
	}
	s, err := r.sessions.forConn(connID)
	if err != nil {
		return err
	}
	if !s.IsHost {
		return ErrNotHost
	}
	target := r.sessions.forTeam(teamID)
	if target == nil {
		return ErrUnknownTeam
	}
	r.touch()
	r.expire(target, "removed by host")
	r.checkEmpty()
	return nil
}

// release discards a session without reserving anything: its team returns
// to the pool.
func (r *Room) release(s *Session) {
	r.sessions.remove(s, false)
	if team, ok := r.teamByID[s.TeamID]; ok {
		team.Control = models.ControlSynthetic
		team.Status = models.TeamActive
	}
	if s.IsHost {
		if h := r.sessions.promoteHost(); h != nil {
			log.Info().Str("room_code", r.code).Str("session_id", h.ID).Msg("host privilege passed on")
		}
	}
	log.Info().Str("room_code", r.code).Str("session_id", s.ID).Msg("participant left")
	r.broadcast(protocol.EventRoomUpdate, protocol.RoomUpdatePayload{Room: r.snapshot()})
}

// expire discards a session for good; its identity and connection get
// ErrSessionExpired from now on.
func (r *Room) expire(s *Session, reason string) {
	payload := protocol.ParticipantPayload{DisplayName: s.DisplayName, TeamID: s.TeamID, Reason: reason}
	r.broadcast(protocol.EventParticipantRemoved, payload)

	r.sessions.remove(s, true)
	if team, ok := r.teamByID[s.TeamID]; ok {
		r.handOver(team)
	}
	if s.IsHost {
		r.sessions.promoteHost()
	}

	log.Info().
		Str("room_code", r.code).
		Str("session_id", s.ID).
		Str("team_id", s.TeamID).
		Str("reason", reason).
		Msg("session expired")
}

// handOver decides what happens to a team whose controller is gone
func (r *Room) handOver(team *models.Team) {
	if r.phase == models.PhaseLobby || r.cfg.SyntheticTakeover {
		team.Control = models.ControlSynthetic
		team.Status = models.TeamActive
		return
	}
	team.Status = models.TeamInactive
}

// checkEmpty destroys a room nobody is connected to before bidding began,
// or after it finished.
func (r *Room) checkEmpty() {
	if len(r.sessions.connected()) > 0 {
		return
	}
	switch r.phase {
	case models.PhaseLobby, models.PhaseCountdown, models.PhaseCompleted:
		log.Info().Str("room_code", r.code).Str("phase", string(r.phase)).Msg("last connection left, closing room")
		r.stopTicker()
		if r.onEmpty != nil {
			r.onEmpty(r.code)
		}
	}
}
