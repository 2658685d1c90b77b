package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	lserr "lineserver/internal/errors"
)

// MaxFrameSize bounds a single frame read by the server.  Commands are
// short; a larger frame is a protocol violation and ends the connection.
// Client connections read replies of any size.
const MaxFrameSize = 64 * 1024

// WSConn is a WebSocket connection in either the server or the client
// role.
type WSConn struct {
	conn     net.Conn
	r        io.Reader
	state    ws.State
	maxFrame int64 // 0 means unlimited

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

var _ FrameConn = (*WSConn)(nil)

func newWSConn(conn net.Conn, r io.Reader, state ws.State, maxFrame int64) *WSConn {
	return &WSConn{conn: conn, r: r, state: state, maxFrame: maxFrame}
}

// Accept performs the server side of the WebSocket upgrade on an
// accepted connection.  The handshake must finish within timeout
// (0 means no limit).  On failure the caller still owns conn.
func Accept(conn net.Conn, timeout time.Duration) (*WSConn, error) {
	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout)) //nolint:errcheck
	}
	if _, err := ws.Upgrade(conn); err != nil {
		return nil, fmt.Errorf("websocket upgrade: %w", err)
	}
	conn.SetDeadline(time.Time{}) //nolint:errcheck
	return newWSConn(conn, conn, ws.StateServerSide, MaxFrameSize), nil
}

// Dialer opens client-side WebSocket connections.
type Dialer struct {
	Timeout time.Duration // connect + handshake
	Net     NetDialer     // nil uses a TCPDialer with Timeout
}

// Dial connects to addr ("host:port") and performs the client upgrade.
func (d *Dialer) Dial(ctx context.Context, addr string) (*WSConn, error) {
	nd := d.Net
	if nd == nil {
		nd = &TCPDialer{Timeout: d.Timeout}
	}
	wd := ws.Dialer{Timeout: d.Timeout, NetDial: nd.Dial}

	conn, br, _, err := wd.Dial(ctx, "ws://"+addr+"/")
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", addr, err)
	}

	// Bytes the server sent right after the handshake may already sit
	// in br; they must be read before the socket.
	var r io.Reader = conn
	if br != nil {
		r = io.MultiReader(br, conn)
	}
	return newWSConn(conn, r, ws.StateClientSide, 0), nil
}

// ── reading ──────────────────────────────────────────────────────────

// ReadFrame returns the next text or binary message.  Ping, pong and
// close frames are answered internally; a close from the peer is
// reported as io.EOF.
func (c *WSConn) ReadFrame() (Frame, error) {
	rd := wsutil.Reader{
		Source:         c.r,
		State:          c.state,
		CheckUTF8:      true,
		MaxFrameSize:   c.maxFrame,
		OnIntermediate: c.handleControl,
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return Frame{}, err
		}
		if hdr.OpCode.IsControl() {
			if err := c.handleControl(hdr, &rd); err != nil {
				return Frame{}, closedAsEOF(err)
			}
			continue
		}

		payload, err := io.ReadAll(&rd)
		if err != nil {
			return Frame{}, closedAsEOF(err)
		}
		return Frame{Op: hdr.OpCode, Payload: payload}, nil
	}
}

// handleControl answers a control frame.  The reply is rendered into
// a buffer first so it reaches the socket as one write under the
// write lock.
func (c *WSConn) handleControl(h ws.Header, r io.Reader) error {
	var out bytes.Buffer
	err := wsutil.ControlFrameHandler(&out, c.state)(h, r)
	if out.Len() > 0 {
		c.wmu.Lock()
		_, werr := c.conn.Write(out.Bytes())
		c.wmu.Unlock()
		if err == nil {
			err = werr
		}
	}
	return err
}

// IsHandshakeRejected reports whether a dial failed because the peer
// answered the upgrade with something other than a WebSocket
// handshake.  Redialling the same address will not change that.
func IsHandshakeRejected(err error) bool {
	var status ws.StatusError
	if lserr.As(err, &status) {
		return true
	}
	for _, target := range handshakeErrors {
		if lserr.Is(err, target) {
			return true
		}
	}
	return false
}

var handshakeErrors = []error{
	ws.ErrHandshakeBadProtocol,
	ws.ErrMalformedResponse,
	ws.ErrHandshakeBadUpgrade,
	ws.ErrHandshakeBadConnection,
	ws.ErrHandshakeBadSecAccept,
	ws.ErrHandshakeBadSubProtocol,
	ws.ErrHandshakeBadExtensions,
}

func closedAsEOF(err error) error {
	var ce wsutil.ClosedError
	if lserr.As(err, &ce) {
		return io.EOF
	}
	return err
}

// ── writing ──────────────────────────────────────────────────────────

// WriteText sends text as one frame.
func (c *WSConn) WriteText(text string) error {
	return c.WriteFrame(ws.OpText, []byte(text))
}

// WriteFrame sends payload as one frame with the given opcode.
func (c *WSConn) WriteFrame(op ws.OpCode, payload []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return wsutil.WriteMessage(c.conn, c.state, op, payload)
}

// CloseSend tells the peer no more messages follow while leaving the
// read side open for its remaining replies.
func (c *WSConn) CloseSend() error {
	return c.WriteFrame(ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
}

// ── lifecycle ────────────────────────────────────────────────────────

// SetReadDeadline bounds the next ReadFrame.
func (c *WSConn) SetReadDeadline(t time.Time) error { return c.conn.SetReadDeadline(t) }

// RemoteAddr returns the peer address.
func (c *WSConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close sends a best-effort normal-closure frame and closes the socket.
// It is safe to call more than once and from any goroutine.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		c.conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond)) //nolint:errcheck
		c.CloseSend()                                                    //nolint:errcheck
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// Abort closes the socket immediately without a close frame.
func (c *WSConn) Abort() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// ── line relay ───────────────────────────────────────────────────────

// Send writes one text message.
func (c *WSConn) Send(text string) error { return c.WriteText(text) }

// Recv returns the next text message, skipping binary ones.
func (c *WSConn) Recv() (string, error) {
	for {
		f, err := c.ReadFrame()
		if err != nil {
			return "", err
		}
		if f.IsText() {
			return string(f.Payload), nil
		}
	}
}
