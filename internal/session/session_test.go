package session

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lineserver/internal/transport"
	"lineserver/util"
)

type stubConn struct {
	closed atomic.Int32
}

func (c *stubConn) ReadFrame() (transport.Frame, error) { return transport.Frame{}, nil }
func (c *stubConn) WriteText(string) error            { return nil }
func (c *stubConn) SetReadDeadline(time.Time) error   { return nil }
func (c *stubConn) RemoteAddr() net.Addr              { return &net.TCPAddr{} }
func (c *stubConn) Close() error                      { c.closed.Add(1); return nil }

func TestSession_Lifecycle(t *testing.T) {
	s := New("127.0.0.1:5000", nil, util.NewLogger(0))
	assert.Equal(t, Handshaking, s.State())
	assert.Len(t, s.ID, 36)
	assert.Nil(t, s.Conn())

	conn := &stubConn{}
	require.NoError(t, s.Activate(conn))
	assert.Equal(t, Active, s.State())
	assert.Same(t, conn, s.Conn())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, Closed, s.State())
	assert.EqualValues(t, 1, conn.closed.Load(), "connection closed exactly once")
}

func TestSession_CloseDuringHandshake(t *testing.T) {
	raw := &stubConn{}
	s := New("peer", raw, util.NewLogger(0))
	require.NoError(t, s.Close())
	assert.EqualValues(t, 1, raw.closed.Load(), "raw socket closed")

	err := s.Activate(&stubConn{})
	assert.Error(t, err)
	assert.Equal(t, Closed, s.State())
}

func TestSession_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := New("peer", nil, util.NewLogger(0)).ID
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "handshaking", Handshaking.String())
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "state(9)", State(9).String())
}
