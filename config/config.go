// Package config defines the runtime configuration for lineserver and
// validates it before any component is built.
package config

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	lserr "lineserver/internal/errors"
	"lineserver/util"
)

// Config holds every tuneable for one lineserver process.
type Config struct {
	// ── Serving ──────────────────────────────────────────────────────
	Addr             string // WebSocket listen address
	SeedFile         string // text file whose lines are served
	IdleTimeout      time.Duration
	HandshakeTimeout time.Duration
	RESPAddr         string // optional RESP listen address
	ShutdownHash     string // optional bcrypt hash gating SHUTDOWN

	// ── Client ───────────────────────────────────────────────────────
	Connect string // when set, relay stdin to this server instead of serving

	// ── Output ───────────────────────────────────────────────────────
	Verbose    int
	LogFile    string
	NoProgress bool
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Addr:             DefaultAddr,
		SeedFile:         DefaultSeedFile,
		IdleTimeout:      DefaultIdleTimeout,
		HandshakeTimeout: DefaultHandshakeTimeout,
		Verbose:          DefaultVerbosity,
	}
}

// ClientMode reports whether the process relays to a remote server
// rather than serving a file.
func (c *Config) ClientMode() bool { return c.Connect != "" }

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Failures are *errors.ConfigError values carrying a hint.
func (c *Config) Validate() error {
	if c.ClientMode() {
		if err := util.CheckAddr(c.Connect); err != nil {
			return &lserr.ConfigError{
				Field: "connect", Value: c.Connect, Message: err.Error(),
				Hint: "use host:port, e.g. localhost:10497",
			}
		}
		return nil
	}

	if c.Addr == "" {
		return &lserr.ConfigError{
			Field: "addr", Message: "required",
			Hint: "the default is " + DefaultAddr,
		}
	}
	if err := util.CheckAddr(c.Addr); err != nil {
		return &lserr.ConfigError{
			Field: "addr", Value: c.Addr, Message: err.Error(),
			Hint: "use host:port, e.g. " + DefaultAddr,
		}
	}

	if c.SeedFile == "" {
		return &lserr.ConfigError{
			Field: "file", Message: "a seed file is required",
			Hint: "pass the path as the first argument",
		}
	}

	if c.IdleTimeout < 0 {
		return &lserr.ConfigError{
			Field: "idle-timeout", Value: c.IdleTimeout, Message: "must not be negative",
			Hint: "use 0 to disable the idle timeout",
		}
	}
	if c.HandshakeTimeout <= 0 {
		return &lserr.ConfigError{
			Field: "handshake-timeout", Value: c.HandshakeTimeout, Message: "must be positive",
		}
	}

	if c.RESPAddr != "" {
		if err := util.CheckAddr(c.RESPAddr); err != nil {
			return &lserr.ConfigError{
				Field: "resp-addr", Value: c.RESPAddr, Message: err.Error(),
				Hint: "use host:port, e.g. localhost:6380",
			}
		}
		if c.RESPAddr == c.Addr {
			return &lserr.ConfigError{
				Field: "resp-addr", Value: c.RESPAddr,
				Message: "must differ from --addr",
			}
		}
	}

	if c.ShutdownHash != "" {
		if _, err := bcrypt.Cost([]byte(c.ShutdownHash)); err != nil {
			return &lserr.ConfigError{
				Field: "shutdown-hash", Message: "not a bcrypt hash: " + err.Error(),
				Hint: "generate one with: htpasswd -bnBC 10 \"\" <secret> | tr -d ':'",
			}
		}
	}

	return nil
}
