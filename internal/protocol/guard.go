package protocol

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	lserr "lineserver/internal/errors"
)

// ShutdownGuard gates SHUTDOWN behind a bcrypt-hashed secret.  A nil
// guard allows every SHUTDOWN.
type ShutdownGuard struct {
	hash []byte
}

// NewShutdownGuard returns a guard for the given bcrypt hash, or nil
// when hash is empty.
func NewShutdownGuard(hash string) (*ShutdownGuard, error) {
	if hash == "" {
		return nil, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("shutdown hash: %w", err)
	}
	return &ShutdownGuard{hash: []byte(hash)}, nil
}

// Check verifies the first argument against the hash.
func (g *ShutdownGuard) Check(args []string) error {
	if g == nil {
		return nil
	}
	if len(args) == 0 {
		return lserr.ErrMissingArg
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(args[0])); err != nil {
		return lserr.ErrUnauthorized
	}
	return nil
}

// Enabled reports whether a secret is required.
func (g *ShutdownGuard) Enabled() bool { return g != nil }
