// Package retry provides exponential backoff for transient network
// failures: redialling in client mode and pausing the accept loop.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError marks a failure that another attempt cannot fix, such
// as a peer that answers the WebSocket upgrade with an HTTP error.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that [Backoff.Do] returns it (unwrapped) at
// once.  Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is a
// PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff implements exponential backoff with optional jitter.
type Backoff struct {
	// InitialDelay is the delay before the first retry (default 1s).
	InitialDelay time.Duration
	// MaxDelay caps the backoff duration (default 60s).
	MaxDelay time.Duration
	// Multiplier increases the delay each attempt (default 2.0).
	Multiplier float64
	// MaxAttempts is the total number of tries including the first.
	// Set to 0 for unlimited retries (until context cancelled).
	MaxAttempts int
	// Jitter adds ±25% randomisation to prevent thundering herd.
	Jitter bool
}

// DefaultBackoff returns a reasonable default configuration.
func DefaultBackoff() *Backoff {
	return &Backoff{
		InitialDelay: 1 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  10,
		Jitter:       true,
	}
}

func (b *Backoff) initial() time.Duration {
	if b.InitialDelay == 0 {
		return time.Second
	}
	return b.InitialDelay
}

func (b *Backoff) multiplier() float64 {
	if b.Multiplier <= 0 {
		return 2.0
	}
	return b.Multiplier
}

func (b *Backoff) maxDelay() time.Duration {
	if b.MaxDelay == 0 {
		return 60 * time.Second
	}
	return b.MaxDelay
}

func (b *Backoff) grow(d time.Duration) time.Duration {
	d = time.Duration(float64(d) * b.multiplier())
	if max := b.maxDelay(); d > max {
		d = max
	}
	return d
}

// Do executes fn repeatedly until it succeeds, returns a permanent
// error, or the retry budget (attempts / context) is exhausted.
//
// The attempt parameter passed to fn is 1-based.  On success fn should
// return nil.  To abort retrying, wrap the error with [Permanent].
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	delay := b.initial()

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		// Permanent errors are never retried.
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}

		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return fmt.Errorf("max retries (%d) exceeded: %w", b.MaxAttempts, err)
		}

		wait := delay
		if b.Jitter {
			wait = addJitter(delay)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(wait):
		}

		delay = b.grow(delay)
	}
}

// ── Inline sequences ─────────────────────────────────────────────────

// Sequence yields successive delays for loops that retry inline rather
// than through [Backoff.Do], such as an accept loop that must keep its
// own control flow.  It is not safe for concurrent use.
type Sequence struct {
	b    *Backoff
	next time.Duration
}

// Sequence starts a new delay sequence at InitialDelay.
func (b *Backoff) Sequence() *Sequence {
	return &Sequence{b: b}
}

// Next returns the delay to wait now and advances the sequence.
func (s *Sequence) Next() time.Duration {
	if s.next == 0 {
		s.next = s.b.initial()
	}
	d := s.next
	s.next = s.b.grow(s.next)
	if s.b.Jitter {
		d = addJitter(d)
	}
	return d
}

// Reset restarts the sequence after a success.
func (s *Sequence) Reset() { s.next = 0 }

// addJitter adds ±25% randomisation to a duration.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	result := float64(d) + delta
	return time.Duration(math.Max(result, float64(time.Millisecond)))
}
