// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"lineserver/config"
	"lineserver/internal/core"
	"lineserver/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X lineserver/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// errExit signals a handled early exit (help, version).
var errExit = errors.New("exit")

type options struct {
	dryRun      bool
	showVersion bool
	showHelp    bool
}

// Execute parses args and runs the selected lineserver mode.
func Execute(ctx context.Context, args []string) error {
	cfg, opts, err := parse(args)
	if errors.Is(err, errExit) {
		return nil
	}
	if err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	if cfg.LogFile != "" {
		closer, err := logger.TeeFile(cfg.LogFile)
		if err != nil {
			return err
		}
		defer closer.Close()
	}

	if opts.dryRun {
		return dryRun(cfg, logger)
	}

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// parse layers defaults, environment and flags, in that order.
func parse(args []string) (*config.Config, *options, error) {
	cfg := config.Default()
	config.LoadFromEnv(cfg)
	baseVerbosity := cfg.Verbose // CountVarP resets its target to 0

	opts := &options{}
	fs := flag.NewFlagSet("lineserver", flag.ContinueOnError)

	// ── serving ──────────────────────────────────────────────────
	fs.StringVarP(&cfg.Addr, "addr", "a", cfg.Addr, "WebSocket listen address (host:port)")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "Close sessions idle this long (0 disables)")
	fs.DurationVar(&cfg.HandshakeTimeout, "handshake-timeout", cfg.HandshakeTimeout, "Deadline for the WebSocket upgrade")
	fs.StringVar(&cfg.RESPAddr, "resp-addr", cfg.RESPAddr, "Also serve the commands over RESP on this address")
	fs.StringVar(&cfg.ShutdownHash, "shutdown-hash", cfg.ShutdownHash, "bcrypt hash; SHUTDOWN then requires the matching secret")

	// ── client ───────────────────────────────────────────────────
	fs.StringVar(&cfg.Connect, "connect", cfg.Connect, "Relay stdin to a running server at host:port")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also write the log to this file (truncated)")
	fs.BoolVar(&cfg.NoProgress, "no-progress", cfg.NoProgress, "Do not draw the indexing progress bar")

	fs.BoolVar(&opts.dryRun, "dry-run", false, "Validate config and load the file, then exit")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&opts.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	cfg.Verbose += baseVerbosity

	if opts.showHelp {
		printUsage(fs)
		return nil, nil, errExit
	}
	if opts.showVersion {
		fmt.Printf("lineserver %s\n", version)
		return nil, nil, errExit
	}

	// ── positional arguments ─────────────────────────────────────
	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		cfg.SeedFile = rest[0]
	default:
		return nil, nil, fmt.Errorf("too many arguments: %q (expected at most one seed file)", rest)
	}
	return cfg, opts, nil
}

func dryRun(cfg *config.Config, logger *util.Logger) error {
	if cfg.ClientMode() {
		logger.Info("config ok: would connect to %s", cfg.Connect)
		return nil
	}
	store, err := core.LoadStore(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("config ok: would serve %d lines on %s", store.Len(), cfg.Addr)
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `lineserver v%s

Serves the lines of a text file to WebSocket clients.

Usage:
  lineserver [options] [seed-file]            Serve (default file %s)
  lineserver --connect <host:port>            Interactive client

Protocol (one command per text frame):
  GET n       reply "OK" then line n (1-based), or "ERR"
  QUIT        close this connection
  SHUTDOWN    stop the server

Options:
`, version, config.DefaultSeedFile)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  LINESERVER_ADDR, LINESERVER_FILE, LINESERVER_IDLE_TIMEOUT (seconds),
  LINESERVER_RESP_ADDR, LINESERVER_SHUTDOWN_HASH, LINESERVER_LOG_FILE,
  LINESERVER_VERBOSE, LINESERVER_NO_PROGRESS
`)
}
