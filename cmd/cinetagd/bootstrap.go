package main

import (
	"log/slog"
	"path/filepath"

	"cinetag/internal/config"
	"cinetag/internal/daemon"
	"cinetag/internal/engine"
	"cinetag/internal/tagstore"
)

// buildDaemon opens the tag store and wires the reconciliation engine into a
// daemon instance.
func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := tagstore.Open(cfg)
	if err != nil {
		return nil, err
	}
	eng := engine.New(cfg, store, logger)
	d, err := daemon.New(cfg, store, eng, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return d, nil
}

func socketPath(cfg *config.Config) string {
	if cfg == nil {
		return filepath.Join("", "cinetagd.sock")
	}
	return cfg.SocketPath()
}
