package core

import (
	"context"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"lineserver/config"
	"lineserver/internal/docstore"
	lserr "lineserver/internal/errors"
	"lineserver/internal/metrics"
	"lineserver/internal/protocol"
	"lineserver/internal/resp"
	"lineserver/internal/retry"
	"lineserver/internal/session"
	"lineserver/util"
)

// ServeMode accepts WebSocket clients and serves lines from a shared,
// read-only store, one goroutine per connection.
type ServeMode struct {
	Address          string
	RESPAddress      string // optional RESP front end
	Store            docstore.Reader
	IdleTimeout      time.Duration
	HandshakeTimeout time.Duration
	Guard            *protocol.ShutdownGuard
	Logger           *util.Logger
	Metrics          *metrics.Collector

	// AcceptBackoff paces retries after temporary accept failures.
	// Nil uses 5ms doubling up to 1s.
	AcceptBackoff *retry.Backoff

	// Exit terminates the process after Halt.  Nil uses os.Exit.
	Exit func(code int)

	mu       sync.Mutex
	ln       net.Listener
	resp     *resp.Server
	handler  *protocol.Handler
	sessions sync.Map // session id → *session.Session
	wg       sync.WaitGroup
	halted   atomic.Bool
}

var _ protocol.Halter = (*ServeMode)(nil)

// Run binds the listener and serves until the context is cancelled or
// a client sends SHUTDOWN.
func (m *ServeMode) Run(ctx context.Context) error {
	if err := m.Listen(); err != nil {
		return err
	}
	return m.Serve(ctx)
}

// Listen binds the WebSocket listener (and the RESP front end when
// configured).  Bind failures are *errors.StartupError of kind
// BindFailed.
func (m *ServeMode) Listen() error {
	dispatcher := protocol.NewDispatcher(m.Store, m.Guard)

	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return lserr.Startup(lserr.BindFailed, m.Address, err)
	}

	var rs *resp.Server
	if m.RESPAddress != "" {
		rs = resp.New(dispatcher, m, m.Metrics, m.Logger)
		if err := rs.Start(m.RESPAddress); err != nil {
			ln.Close()
			return lserr.Startup(lserr.BindFailed, m.RESPAddress, err)
		}
	}

	m.mu.Lock()
	m.ln, m.resp = ln, rs
	m.handler = &protocol.Handler{
		Dispatcher:       dispatcher,
		Halter:           m,
		Metrics:          m.Metrics,
		IdleTimeout:      m.IdleTimeout,
		HandshakeTimeout: m.HandshakeTimeout,
	}
	m.mu.Unlock()

	m.Logger.Info("serving on %s", ln.Addr())
	return nil
}

// Addr returns the bound WebSocket address, or nil before Listen.
func (m *ServeMode) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln == nil {
		return nil
	}
	return m.ln.Addr()
}

// RESPAddr returns the bound RESP address, or nil when disabled.
func (m *ServeMode) RESPAddr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resp == nil {
		return nil
	}
	return m.resp.Addr()
}

// Serve runs the accept loop on the listener bound by Listen.  It
// returns nil after context cancellation or Halt, and an error when
// the listener fails for any other reason.
func (m *ServeMode) Serve(ctx context.Context) error {
	m.mu.Lock()
	ln := m.ln
	m.mu.Unlock()
	if ln == nil {
		return lserr.New("serve: not listening")
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			m.closeAll()
		case <-stop:
		}
	}()
	defer m.wg.Wait()

	backoff := m.AcceptBackoff
	if backoff == nil {
		backoff = &retry.Backoff{
			InitialDelay: config.DefaultAcceptBackoff,
			MaxDelay:     config.DefaultMaxAcceptBackoff,
		}
	}
	delays := backoff.Sequence()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || m.halted.Load() {
				return nil
			}
			nerr := lserr.Wrap("accept", ln.Addr().String(), err)
			if lserr.IsRetryable(nerr) {
				d := delays.Next()
				m.Logger.Warn("%v; retrying in %s", nerr, d)
				select {
				case <-time.After(d):
					continue
				case <-ctx.Done():
					return nil
				}
			}
			m.closeAll()
			return nerr
		}
		delays.Reset()

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.serveConn(ctx, conn)
		}()
	}
}

// serveConn registers the session before checking for shutdown, so a
// connection accepted while closeAll is ranging is closed here instead.
func (m *ServeMode) serveConn(ctx context.Context, conn net.Conn) {
	peer := conn.RemoteAddr().String()
	sess := session.New(peer, conn, m.Logger)

	m.sessions.Store(sess.ID, sess)
	defer m.sessions.Delete(sess.ID)
	if m.halted.Load() || ctx.Err() != nil {
		sess.Close() //nolint:errcheck
		return
	}

	m.Metrics.ConnectionOpened()
	defer m.Metrics.ConnectionClosed()
	sess.Logger.Verbose("connection accepted")

	err := m.handler.Handle(sess, conn)
	switch {
	case err == nil:
		sess.Logger.Verbose("session ended after %s", sess.Age().Truncate(time.Millisecond))
	case lserr.Is(err, lserr.ErrIdleTimeout), lserr.Is(err, lserr.ErrSessionEnded):
		sess.Logger.Verbose("session ended: %v", err)
	case m.halted.Load():
	default:
		sess.Logger.Warn("session failed: %v", err)
		m.Metrics.RecordError(err.Error())
	}
}

// Halt terminates the process: it stops accepting, drops every live
// session without draining and exits with status 0.
func (m *ServeMode) Halt(reason string) {
	if !m.halted.CompareAndSwap(false, true) {
		return
	}
	m.Logger.Info("halting: %s", reason)
	m.Logger.Info("final metrics: %s", m.Metrics.JSON())

	m.closeAll()

	exit := m.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(0)
}

// closeAll closes the listeners and every tracked session.
func (m *ServeMode) closeAll() {
	m.mu.Lock()
	ln, rs := m.ln, m.resp
	m.mu.Unlock()

	var errs []error
	if ln != nil {
		errs = append(errs, ln.Close())
	}
	if rs != nil {
		errs = append(errs, rs.Close())
	}
	m.sessions.Range(func(_, v any) bool {
		errs = append(errs, v.(*session.Session).Close())
		return true
	})
	if err := lserr.Join(errs...); err != nil {
		m.Logger.Debug("close: %v", err)
	}
}

// ActiveSessions returns the number of tracked sessions.
func (m *ServeMode) ActiveSessions() int {
	n := 0
	m.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
