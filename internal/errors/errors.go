// Package errors provides domain-specific error types for lineserver.
//
// The types carry structured context (kind, path or address, operation)
// so callers can decide whether a failure is fatal to the process,
// recoverable for the client, or local to one connection.
package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotFound     = errors.New("line not found")
	ErrBadID        = errors.New("line id is not an integer")
	ErrMissingArg   = errors.New("missing argument")
	ErrSessionEnded = errors.New("session closed")
	ErrIdleTimeout  = errors.New("idle timeout")
	ErrUnauthorized = errors.New("shutdown secret rejected")
)

// ── Startup errors ───────────────────────────────────────────────────

// StartupKind classifies a fatal startup failure.
type StartupKind int

const (
	// Unreadable means the seed file could not be opened or read.
	Unreadable StartupKind = iota + 1
	// BindFailed means the listen address could not be bound.
	BindFailed
)

func (k StartupKind) String() string {
	switch k {
	case Unreadable:
		return "unreadable"
	case BindFailed:
		return "bind failed"
	default:
		return "unknown"
	}
}

// StartupError aborts the process before serving begins.
type StartupError struct {
	Kind   StartupKind
	Target string // file path or listen address
	Err    error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup: %s %s: %v", e.Kind, e.Target, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// ── Protocol errors ──────────────────────────────────────────────────

// ProtocolKind classifies a recoverable command failure.
type ProtocolKind int

const (
	// Parse means a command argument was missing or malformed.
	Parse ProtocolKind = iota + 1
	// NotFound means the requested id is outside the populated range.
	NotFound
)

func (k ProtocolKind) String() string {
	switch k {
	case Parse:
		return "parse"
	case NotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// ProtocolError is surfaced to the client as ERR; the session continues.
type ProtocolError struct {
	Kind ProtocolKind
	Arg  string // the offending argument as sent
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Arg, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ── Network errors ───────────────────────────────────────────────────

// NetworkError represents a failure in a network operation on a
// single connection.
type NetworkError struct {
	Op        string // operation: "listen", "accept", "handshake", "read", "write"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// Startup creates a StartupError.
func Startup(kind StartupKind, target string, err error) *StartupError {
	return &StartupError{Kind: kind, Target: target, Err: err}
}

// Protocol creates a ProtocolError.
func Protocol(kind ProtocolKind, arg string, err error) *ProtocolError {
	return &ProtocolError{Kind: kind, Arg: arg, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// IsStartup reports whether err is a fatal startup failure of the
// given kind.
func IsStartup(err error, kind StartupKind) bool {
	var se *StartupError
	return errors.As(err, &se) && se.Kind == kind
}

// IsProtocol reports whether err is a recoverable command failure of
// the given kind.
func IsProtocol(err error, kind ProtocolKind) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.Kind == kind
}

// IsClosed returns true for errors that only mean the peer or the
// server went away: EOF, a closed connection, or a closed pipe.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use lineserver/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
