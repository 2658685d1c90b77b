package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the LINESERVER_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("LINESERVER_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("LINESERVER_FILE"); v != "" {
		cfg.SeedFile = v
	}
	if v, ok := envInt("LINESERVER_IDLE_TIMEOUT"); ok && v >= 0 {
		cfg.IdleTimeout = secondsDuration(v)
	}
	if v := os.Getenv("LINESERVER_RESP_ADDR"); v != "" {
		cfg.RESPAddr = v
	}
	if v := os.Getenv("LINESERVER_SHUTDOWN_HASH"); v != "" {
		cfg.ShutdownHash = v
	}

	// Output
	if v := os.Getenv("LINESERVER_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v, ok := envInt("LINESERVER_VERBOSE"); ok && v >= 0 {
		cfg.Verbose = v
	}
	if envBool("LINESERVER_NO_PROGRESS") {
		cfg.NoProgress = true
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
