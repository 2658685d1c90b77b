package core

import (
	"os"
	"time"

	"lineserver/config"
	"lineserver/internal/docstore"
	"lineserver/internal/metrics"
	"lineserver/internal/protocol"
	"lineserver/internal/retry"
	"lineserver/internal/transport"
	"lineserver/util"
)

// Build constructs the appropriate Mode from the given configuration.
// In serve mode this loads the seed file, so a returned error may be a
// *errors.StartupError.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.ClientMode() {
		return buildConnect(cfg, logger), nil
	}
	return buildServe(cfg, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildConnect(cfg *config.Config, logger *util.Logger) *ConnectMode {
	policy := retry.DefaultBackoff()
	policy.InitialDelay = 500 * time.Millisecond
	policy.MaxAttempts = 3

	return &ConnectMode{
		Address: cfg.Connect,
		Dialer:  &transport.Dialer{Timeout: config.DefaultDialTimeout},
		Retry:   policy,
		Logger:  logger,
	}
}

func buildServe(cfg *config.Config, logger *util.Logger) (*ServeMode, error) {
	guard, err := protocol.NewShutdownGuard(cfg.ShutdownHash)
	if err != nil {
		return nil, err
	}

	store, err := LoadStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &ServeMode{
		Address:          cfg.Addr,
		RESPAddress:      cfg.RESPAddr,
		Store:            store,
		IdleTimeout:      cfg.IdleTimeout,
		HandshakeTimeout: cfg.HandshakeTimeout,
		Guard:            guard,
		Logger:           logger,
		Metrics:          metrics.New(),
	}, nil
}

// LoadStore builds the document store for cfg.SeedFile, drawing a
// progress bar on stderr unless disabled.
func LoadStore(cfg *config.Config, logger *util.Logger) (*docstore.Store, error) {
	var progress docstore.Progress
	if !cfg.NoProgress && logger.Level() > util.LogQuiet {
		progress = util.NewProgressBar(os.Stderr, "indexing "+cfg.SeedFile)
	}

	logger.Verbose("loading %s", cfg.SeedFile)
	store, err := docstore.Build(cfg.SeedFile, progress)
	if err != nil {
		return nil, err
	}
	logger.Info("indexed %d lines (%s) from %s in %s",
		store.Len(), util.HumanBytes(store.Size()), store.Path(), store.BuildTime())
	logger.Debug("content digest %016x", store.Digest())
	return store, nil
}
