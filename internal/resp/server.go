// Package resp exposes the line-lookup commands over the Redis
// serialization protocol, so stock Redis clients can query the store.
// Replies map onto RESP types: a found line is a two-element array
// ["OK", text], failures are error replies.
package resp

import (
	"fmt"
	"net"
	"sync"

	"github.com/tidwall/redcon"

	"lineserver/internal/metrics"
	"lineserver/internal/protocol"
	"lineserver/util"
)

// Server is a RESP front end sharing the WebSocket server's dispatcher.
type Server struct {
	dispatcher *protocol.Dispatcher
	halter     protocol.Halter
	metrics    *metrics.Collector
	logger     *util.Logger

	mu   sync.Mutex
	srv  *redcon.Server
	done chan struct{}
}

// New returns an unstarted front end.  halter may be nil, in which case
// SHUTDOWN only closes the calling connection.
func New(d *protocol.Dispatcher, halter protocol.Halter, m *metrics.Collector, logger *util.Logger) *Server {
	return &Server{dispatcher: d, halter: halter, metrics: m, logger: logger}
}

// Start binds addr and serves in the background.  It returns once the
// listener is bound or binding failed.
func (s *Server) Start(addr string) error {
	srv := redcon.NewServer(addr, s.handle, s.accept, s.closed)
	signal := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := srv.ListenServeAndSignal(signal); err != nil {
			s.logger.Debug("resp: serve ended: %v", err)
		}
	}()
	if err := <-signal; err != nil {
		<-done
		return fmt.Errorf("resp listen %s: %w", addr, err)
	}

	s.mu.Lock()
	s.srv, s.done = srv, done
	s.mu.Unlock()
	s.logger.Info("resp front end on %s", srv.Addr())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return nil
	}
	return s.srv.Addr()
}

// Close stops accepting and drops every RESP connection.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	err := srv.Close()
	<-done
	return err
}

func (s *Server) accept(conn redcon.Conn) bool {
	s.metrics.ConnectionOpened()
	s.logger.Verbose("resp: connection from %s", conn.RemoteAddr())
	return true
}

func (s *Server) closed(conn redcon.Conn, err error) {
	s.metrics.ConnectionClosed()
	if err != nil {
		s.logger.Debug("resp: %s closed: %v", conn.RemoteAddr(), err)
	}
}

func (s *Server) handle(conn redcon.Conn, rc redcon.Command) {
	args := make([]string, len(rc.Args))
	for i, a := range rc.Args {
		args[i] = string(a)
		s.metrics.BytesReceived(int64(len(a)))
	}
	cmd := protocol.FromArgs(args)
	s.logger.Verbose("resp: client %s => %s", conn.RemoteAddr(), cmd)

	res := s.dispatcher.Execute(cmd)
	s.metrics.CommandHandled(res.Outcome)

	switch res.Next {
	case protocol.Close:
		conn.WriteString(protocol.ReplyOK)
		conn.Close()
		return
	case protocol.Halt:
		conn.WriteString(protocol.ReplyOK)
		conn.Close()
		// Halt closes this server, which must not happen on one of
		// its own connection goroutines.
		if s.halter != nil {
			go s.halter.Halt("SHUTDOWN from resp " + conn.RemoteAddr())
		}
		return
	}
	writeFrames(conn, res.Frames)
	for _, f := range res.Frames {
		s.metrics.BytesSent(int64(len(f)))
	}
}

// writeFrames maps dispatcher frames onto a single RESP reply.
func writeFrames(conn redcon.Conn, frames []string) {
	switch len(frames) {
	case 0:
		conn.WriteNull()
	case 1:
		conn.WriteError(frames[0])
	default:
		conn.WriteArray(len(frames))
		for _, f := range frames {
			conn.WriteBulkString(f)
		}
	}
}
