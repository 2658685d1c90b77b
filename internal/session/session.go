// Package session represents a single client connection's lifecycle:
// its identity, its state and the framed connection it owns.
//
// Sessions decouple the protocol handler from concrete I/O: the handler
// works against a transport.FrameConn, which tests can fake without a
// socket.
package session

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"lineserver/internal/transport"
	"lineserver/util"
)

// State is the position of a session in its lifecycle.
type State int32

const (
	Handshaking State = iota
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Handshaking:
		return "handshaking"
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Session encapsulates the runtime context for a single connection.
type Session struct {
	ID      string
	Peer    string
	Started time.Time
	Logger  *util.Logger

	mu    sync.Mutex
	state State
	raw   io.Closer // underlying socket, closed if no conn was bound
	conn  transport.FrameConn
}

// New creates a Session in the Handshaking state over the raw socket
// (nil allowed).  The logger is scoped with the session id and peer
// address.
func New(peer string, raw io.Closer, logger *util.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:      id,
		Peer:    peer,
		Started: time.Now(),
		Logger:  logger.With("session", id[:8]).With("peer", peer),
		state:   Handshaking,
		raw:     raw,
	}
}

// Activate binds the upgraded connection and moves the session to
// Active.  It fails if the session was closed during the handshake;
// the caller then owns conn.
func (s *Session) Activate(conn transport.FrameConn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Handshaking {
		return fmt.Errorf("session %s: activate in state %s", s.ID, s.state)
	}
	s.conn = conn
	s.state = Active
	return nil
}

// Conn returns the framed connection, or nil before activation.
func (s *Session) Conn() transport.FrameConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close moves the session to Closed and closes its connection.  Only
// the first call has an effect; later calls return nil.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return nil
	}
	s.state = Closed
	conn, raw := s.conn, s.raw
	s.mu.Unlock()

	switch {
	case conn != nil:
		return conn.Close()
	case raw != nil:
		return raw.Close()
	}
	return nil
}

// Age returns how long the session has existed.
func (s *Session) Age() time.Duration { return time.Since(s.Started) }
