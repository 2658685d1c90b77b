package protocol

import (
	"net"
	"time"

	lserr "lineserver/internal/errors"
	"lineserver/internal/metrics"
	"lineserver/internal/session"
	"lineserver/internal/transport"
)

// Halter terminates the whole process.  Halt must close every session,
// including the caller's; it may return (tests) or never return.
type Halter interface {
	Halt(reason string)
}

// Handler drives one connection from handshake to close.
type Handler struct {
	Dispatcher       *Dispatcher
	Halter           Halter
	Metrics          *metrics.Collector
	IdleTimeout      time.Duration // 0 disables
	HandshakeTimeout time.Duration
}

// Handle upgrades raw to a WebSocket connection, binds it to sess and
// serves commands until the client leaves.  The session is closed on
// return.
func (h *Handler) Handle(sess *session.Session, raw net.Conn) error {
	defer sess.Close() //nolint:errcheck

	ws, err := transport.Accept(raw, h.HandshakeTimeout)
	if err != nil {
		h.Metrics.HandshakeFailed()
		return lserr.Wrap("handshake", sess.Peer, err)
	}
	if err := sess.Activate(ws); err != nil {
		ws.Abort() //nolint:errcheck
		return lserr.ErrSessionEnded
	}
	sess.Logger.Verbose("session active")
	return h.Serve(sess)
}

// Serve runs the command loop on an already active session.  A client
// close or QUIT returns nil; an idle timeout returns ErrIdleTimeout;
// transport failures return a *errors.NetworkError.
func (h *Handler) Serve(sess *session.Session) error {
	conn := sess.Conn()
	log := sess.Logger

	for {
		var deadline time.Time
		if h.IdleTimeout > 0 {
			deadline = time.Now().Add(h.IdleTimeout)
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return lserr.Wrap("read", sess.Peer, err)
		}

		f, err := conn.ReadFrame()
		switch {
		case err == nil:
		case lserr.IsClosed(err):
			log.Verbose("client closed connection")
			return nil
		case lserr.IsTimeout(err):
			log.Verbose("idle for %s, closing", h.IdleTimeout)
			return lserr.ErrIdleTimeout
		default:
			return lserr.Wrap("read", sess.Peer, err)
		}
		h.Metrics.BytesReceived(int64(len(f.Payload)))

		if !f.IsText() {
			log.Debug("ignoring non-text frame op=%d (%d bytes)", f.Op, len(f.Payload))
			continue
		}

		cmd := Parse(string(f.Payload))
		log.Verbose("client => %s", cmd)

		start := time.Now()
		res := h.Dispatcher.Execute(cmd)
		h.Metrics.CommandHandled(res.Outcome)
		if res.Err != nil {
			log.Debug("%s: %v", cmd.Verb, res.Err)
		}

		for _, out := range res.Frames {
			if err := conn.WriteText(out); err != nil {
				return lserr.Wrap("write", sess.Peer, err)
			}
			h.Metrics.BytesSent(int64(len(out)))
			log.Verbose("server <= %s", out)
		}
		if cmd.Verb == VerbGet {
			log.Debug("GET served in %s", time.Since(start))
		}

		switch res.Next {
		case Close:
			log.Verbose("client quit")
			return nil
		case Halt:
			log.Info("shutdown requested by %s", sess.Peer)
			if h.Halter != nil {
				h.Halter.Halt("SHUTDOWN from " + sess.Peer)
			}
			return nil
		}
	}
}
