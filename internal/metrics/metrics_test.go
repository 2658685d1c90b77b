package metrics

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestCollector_Connections(t *testing.T) {
	c := New()

	c.ConnectionOpened()
	c.ConnectionOpened()
	if c.ActiveConnections() != 2 {
		t.Errorf("active = %d, want 2", c.ActiveConnections())
	}
	if c.TotalConnections() != 2 {
		t.Errorf("total = %d, want 2", c.TotalConnections())
	}

	c.ConnectionClosed()
	if c.ActiveConnections() != 1 {
		t.Errorf("active = %d, want 1", c.ActiveConnections())
	}
	if c.TotalConnections() != 2 {
		t.Errorf("total should remain 2, got %d", c.TotalConnections())
	}
}

func TestCollector_Commands(t *testing.T) {
	c := New()

	c.CommandHandled(OutcomeOK)
	c.CommandHandled(OutcomeOK)
	c.CommandHandled(OutcomeNotFound)
	c.CommandHandled(OutcomeBadRequest)
	c.CommandHandled(OutcomeUnknown)
	c.CommandHandled(OutcomeControl)

	if c.TotalCommands() != 6 {
		t.Errorf("commands = %d, want 6", c.TotalCommands())
	}
	if c.LinesServed() != 2 {
		t.Errorf("served = %d, want 2", c.LinesServed())
	}

	snap := c.Snapshot()
	if snap.LookupMisses != 1 || snap.BadRequests != 1 || snap.UnknownCommands != 1 {
		t.Errorf("outcome split wrong: %+v", snap)
	}
}

func TestCollector_Bytes(t *testing.T) {
	c := New()

	c.BytesReceived(1024)
	c.BytesSent(512)
	c.BytesReceived(100)

	if c.TotalBytesIn() != 1124 {
		t.Errorf("bytes in = %d, want 1124", c.TotalBytesIn())
	}
	if c.TotalBytesOut() != 512 {
		t.Errorf("bytes out = %d, want 512", c.TotalBytesOut())
	}
}

func TestCollector_Errors(t *testing.T) {
	c := New()

	c.RecordError("first error")
	c.RecordError("second error")
	c.HandshakeFailed()

	if c.ErrorCount() != 2 {
		t.Errorf("errors = %d, want 2", c.ErrorCount())
	}
	snap := c.Snapshot()
	if snap.LastErrorMessage != "second error" {
		t.Errorf("last error = %q", snap.LastErrorMessage)
	}
	if snap.HandshakeFailures != 1 {
		t.Errorf("handshake failures = %d", snap.HandshakeFailures)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.ConnectionOpened()
				c.CommandHandled(OutcomeOK)
				c.ConnectionClosed()
			}
		}()
	}
	wg.Wait()

	if c.TotalConnections() != 1600 || c.ActiveConnections() != 0 {
		t.Errorf("total=%d active=%d", c.TotalConnections(), c.ActiveConnections())
	}
	if c.LinesServed() != 1600 {
		t.Errorf("served = %d", c.LinesServed())
	}
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.ConnectionOpened()
	c.BytesSent(42)

	var snap Snapshot
	if err := json.Unmarshal([]byte(c.JSON()), &snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if snap.ConnectionsActive != 1 || snap.BytesOut != 42 {
		t.Errorf("decoded snapshot = %+v", snap)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector

	// None of these should panic.
	c.ConnectionOpened()
	c.ConnectionClosed()
	c.HandshakeFailed()
	c.CommandHandled(OutcomeOK)
	c.BytesReceived(100)
	c.BytesSent(100)
	c.RecordError("test")

	if c.ActiveConnections() != 0 {
		t.Error("nil collector should return 0")
	}
	if c.TotalBytesIn() != 0 {
		t.Error("nil collector should return 0")
	}
	if c.ErrorCount() != 0 {
		t.Error("nil collector should return 0")
	}

	snap := c.Snapshot()
	if snap.ConnectionsActive != 0 {
		t.Error("nil snapshot should be zero")
	}

	j := c.JSON()
	if j == "" {
		t.Error("nil JSON should return valid JSON")
	}
}
