package room

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionroom/go/internal/auction/protocol"
)

// Conn is the room's view of a participant connection
type Conn interface {
	ID() string
	// Send queues an encoded message; false means the connection is gone
	// or too slow to keep up.
	Send(data []byte) bool
}

// Session is one participant of a room. Owned by the room loop.
type Session struct {
	ID            string
	Identity      string
	DisplayName   string
	TeamID        string
	IsHost        bool
	Connected     bool
	JoinedAt      time.Time
	LastSeen      time.Time
	GraceDeadline time.Time

	conn       Conn
	graceTimer clockwork.Timer
}

// sessionRegistry indexes sessions by id, identity token and connection
type sessionRegistry struct {
	sessions   map[string]*Session
	byIdentity map[string]*Session
	byConn     map[string]*Session
	order      []string // join order, used for host succession

	// identities and connections whose session was discarded after the
	// grace period or by the host
	expiredIdentities map[string]bool
	expiredConns      map[string]bool
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions:          make(map[string]*Session),
		byIdentity:        make(map[string]*Session),
		byConn:            make(map[string]*Session),
		expiredIdentities: make(map[string]bool),
		expiredConns:      make(map[string]bool),
	}
}

func (reg *sessionRegistry) add(conn Conn, identity, displayName string, now time.Time) *Session {
	s := &Session{
		ID:          uuid.New().String(),
		Identity:    identity,
		DisplayName: displayName,
		Connected:   true,
		JoinedAt:    now,
		LastSeen:    now,
		conn:        conn,
	}
	reg.sessions[s.ID] = s
	reg.byIdentity[identity] = s
	reg.byConn[conn.ID()] = s
	reg.order = append(reg.order, s.ID)
	delete(reg.expiredIdentities, identity)
	return s
}

// bind attaches conn to s, detaching whatever connection it had
func (reg *sessionRegistry) bind(s *Session, conn Conn, now time.Time) {
	if s.conn != nil {
		delete(reg.byConn, s.conn.ID())
	}
	s.conn = conn
	s.Connected = true
	s.LastSeen = now
	s.GraceDeadline = time.Time{}
	reg.byConn[conn.ID()] = s
	delete(reg.expiredConns, conn.ID())
}

// detach marks s disconnected and keeps it reserved
func (reg *sessionRegistry) detach(s *Session, now time.Time) {
	if s.conn != nil {
		delete(reg.byConn, s.conn.ID())
	}
	s.conn = nil
	s.Connected = false
	s.LastSeen = now
}

// remove discards s. When expired is set, later use of its identity or last
// connection reports ErrSessionExpired.
func (reg *sessionRegistry) remove(s *Session, expired bool) {
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	if s.conn != nil {
		delete(reg.byConn, s.conn.ID())
		if expired {
			reg.expiredConns[s.conn.ID()] = true
		}
	}
	delete(reg.sessions, s.ID)
	if reg.byIdentity[s.Identity] == s {
		delete(reg.byIdentity, s.Identity)
	}
	if expired {
		reg.expiredIdentities[s.Identity] = true
	}
	for i, id := range reg.order {
		if id == s.ID {
			reg.order = append(reg.order[:i], reg.order[i+1:]...)
			break
		}
	}
}

// forConn resolves the session bound to a connection
func (reg *sessionRegistry) forConn(connID string) (*Session, error) {
	if s, ok := reg.byConn[connID]; ok {
		return s, nil
	}
	if reg.expiredConns[connID] {
		return nil, ErrSessionExpired
	}
	return nil, ErrNotInRoom
}

func (reg *sessionRegistry) forTeam(teamID string) *Session {
	if teamID == "" {
		return nil
	}
	for _, id := range reg.order {
		if s := reg.sessions[id]; s.TeamID == teamID {
			return s
		}
	}
	return nil
}

func (reg *sessionRegistry) host() *Session {
	for _, id := range reg.order {
		if s := reg.sessions[id]; s.IsHost {
			return s
		}
	}
	return nil
}

// promoteHost passes host privilege to the earliest remaining session
func (reg *sessionRegistry) promoteHost() *Session {
	if h := reg.host(); h != nil {
		return h
	}
	if len(reg.order) == 0 {
		return nil
	}
	s := reg.sessions[reg.order[0]]
	s.IsHost = true
	return s
}

func (reg *sessionRegistry) connected() []*Session {
	out := make([]*Session, 0, len(reg.order))
	for _, id := range reg.order {
		if s := reg.sessions[id]; s.Connected && s.conn != nil {
			out = append(out, s)
		}
	}
	return out
}

func (reg *sessionRegistry) views() []protocol.ParticipantView {
	out := make([]protocol.ParticipantView, 0, len(reg.order))
	for _, id := range reg.order {
		s := reg.sessions[id]
		out = append(out, protocol.ParticipantView{
			SessionID:   s.ID,
			DisplayName: s.DisplayName,
			TeamID:      s.TeamID,
			IsHost:      s.IsHost,
			Connected:   s.Connected,
		})
	}
	return out
}

func (reg *sessionRegistry) count() int { return len(reg.sessions) }
