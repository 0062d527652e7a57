package main

import (
	"path/filepath"
	"testing"

	"cinetag/internal/config"
	"cinetag/internal/logging"
	"cinetag/internal/testsupport"
)

func TestBuildDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	d, err := buildDaemon(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildDaemon: %v", err)
	}
	if d == nil {
		t.Fatal("expected daemon instance")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSocketPath(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(t.TempDir(), "state")

	expected := filepath.Join(cfg.Paths.StateDir, "cinetagd.sock")
	if got := socketPath(&cfg); got != expected {
		t.Fatalf("expected socket path %q, got %q", expected, got)
	}

	if got := socketPath(nil); got != filepath.Join("", "cinetagd.sock") {
		t.Fatalf("expected default socket path %q, got %q", filepath.Join("", "cinetagd.sock"), got)
	}
}
