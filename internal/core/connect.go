package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"lineserver/internal/retry"
	"lineserver/internal/transport"
	"lineserver/util"
)

// ConnectMode dials a lineserver, sends each stdin line as a command
// and prints every reply frame on its own line.
type ConnectMode struct {
	Address string
	Dialer  *transport.Dialer
	Retry   *retry.Backoff // nil means a single attempt
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run dials the server and relays until stdin is exhausted and the
// server has closed, or the context is cancelled.
func (m *ConnectMode) Run(ctx context.Context) error {
	m.Logger.Verbose("connecting to %s", m.Address)

	policy := m.Retry
	if policy == nil {
		policy = &retry.Backoff{MaxAttempts: 1}
	}

	var conn *transport.WSConn
	err := policy.Do(ctx, func(attempt int) error {
		c, err := m.Dialer.Dial(ctx, m.Address)
		if err != nil {
			m.Logger.Verbose("attempt %d: %v", attempt, err)
			if transport.IsHandshakeRejected(err) {
				return retry.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.Address, err)
	}
	defer conn.Close()

	m.Logger.Verbose("connected to %s", conn.RemoteAddr())
	return util.RelayLines(ctx, conn, m.stdin(), m.stdout())
}
