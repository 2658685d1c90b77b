package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultAddr is where the WebSocket listener binds.
	DefaultAddr = "localhost:10497"

	// DefaultSeedFile is loaded when no positional argument is given.
	DefaultSeedFile = "files/test_file.txt"

	// DefaultIdleTimeout closes a session that sends nothing for this
	// long.  Zero disables the timeout.
	DefaultIdleTimeout = 5 * time.Minute

	// DefaultHandshakeTimeout bounds the WebSocket upgrade.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultDialTimeout bounds the client-mode connection attempt.
	DefaultDialTimeout = 10 * time.Second

	// DefaultVerbosity prints startup and lifecycle messages.
	DefaultVerbosity = 1

	// DefaultAcceptBackoff is the first pause after a temporary accept
	// failure; it doubles up to DefaultMaxAcceptBackoff.
	DefaultAcceptBackoff = 5 * time.Millisecond

	// DefaultMaxAcceptBackoff caps the pause between accept retries.
	DefaultMaxAcceptBackoff = 1 * time.Second
)
