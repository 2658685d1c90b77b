// Package transport provides the message-framed connection that the
// protocol layer speaks over.  Frames are WebSocket messages carried
// on a plain TCP connection; the upgrade runs directly on the accepted
// net.Conn so the accept loop stays in the caller's hands.
package transport

import (
	"context"
	"net"
	"time"

	"github.com/gobwas/ws"
)

// Frame is one complete message received from the peer.
type Frame struct {
	Op      ws.OpCode
	Payload []byte
}

// IsText reports whether the frame carries UTF-8 text.
func (f Frame) IsText() bool { return f.Op == ws.OpText }

// FrameConn exchanges whole messages over one connection.  ReadFrame
// returns io.EOF when the peer closes the conversation normally.
// Writes are serialised internally; reads must come from a single
// goroutine.
type FrameConn interface {
	ReadFrame() (Frame, error)
	WriteText(text string) error
	SetReadDeadline(t time.Time) error
	RemoteAddr() net.Addr
	Close() error
}

// NetDialer opens the raw TCP connection underneath a WebSocket dial.
type NetDialer interface {
	Dial(ctx context.Context, network, address string) (net.Conn, error)
}
