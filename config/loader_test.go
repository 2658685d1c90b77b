package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadFromEnv_Addr(t *testing.T) {
	t.Setenv("LINESERVER_ADDR", "0.0.0.0:9000")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Addr != "0.0.0.0:9000" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, "0.0.0.0:9000")
	}
}

func TestLoadFromEnv_File(t *testing.T) {
	t.Setenv("LINESERVER_FILE", "/srv/corpus.txt")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.SeedFile != "/srv/corpus.txt" {
		t.Errorf("SeedFile = %q", cfg.SeedFile)
	}
}

func TestLoadFromEnv_IdleTimeout(t *testing.T) {
	t.Setenv("LINESERVER_IDLE_TIMEOUT", "30")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.IdleTimeout != 30*time.Second {
		t.Errorf("IdleTimeout = %v, want 30s", cfg.IdleTimeout)
	}
}

func TestLoadFromEnv_IdleTimeoutZeroDisables(t *testing.T) {
	t.Setenv("LINESERVER_IDLE_TIMEOUT", "0")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.IdleTimeout != 0 {
		t.Errorf("IdleTimeout = %v, want 0", cfg.IdleTimeout)
	}
}

func TestLoadFromEnv_Strings(t *testing.T) {
	t.Setenv("LINESERVER_RESP_ADDR", "localhost:6380")
	t.Setenv("LINESERVER_SHUTDOWN_HASH", "$2a$10$abc")
	t.Setenv("LINESERVER_LOG_FILE", "logs/transcript.log")

	cfg := Default()
	LoadFromEnv(cfg)

	if cfg.RESPAddr != "localhost:6380" {
		t.Errorf("RESPAddr = %q", cfg.RESPAddr)
	}
	if cfg.ShutdownHash != "$2a$10$abc" {
		t.Errorf("ShutdownHash = %q", cfg.ShutdownHash)
	}
	if cfg.LogFile != "logs/transcript.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "TRUE", "Yes"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("LINESERVER_NO_PROGRESS", v)
			cfg := Default()
			LoadFromEnv(cfg)
			if !cfg.NoProgress {
				t.Error("NoProgress should be true")
			}
		})
	}
}

func TestLoadFromEnv_NoOverrideWhenEmpty(t *testing.T) {
	// Ensure no LINESERVER_ vars are set.
	os.Clearenv()

	cfg := &Config{Addr: "original:1", SeedFile: "a.txt", Verbose: 2}
	LoadFromEnv(cfg)

	if cfg.Addr != "original:1" {
		t.Errorf("Addr was overridden: %q", cfg.Addr)
	}
	if cfg.SeedFile != "a.txt" {
		t.Errorf("SeedFile was overridden: %q", cfg.SeedFile)
	}
	if cfg.Verbose != 2 {
		t.Errorf("Verbose was overridden: %d", cfg.Verbose)
	}
}

func TestLoadFromEnv_InvalidIntIgnored(t *testing.T) {
	t.Setenv("LINESERVER_IDLE_TIMEOUT", "not-a-number")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("IdleTimeout should keep its default for invalid input, got %v", cfg.IdleTimeout)
	}
}

func TestLoadFromEnv_Verbose(t *testing.T) {
	t.Setenv("LINESERVER_VERBOSE", "3")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Verbose != 3 {
		t.Errorf("Verbose = %d, want 3", cfg.Verbose)
	}
}
