package daemonctl

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"cinetag/internal/config"
)

func TestDeriveStateDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = "/var/lib/cinetag"

	if got := DeriveStateDir("/run/cinetag/cinetagd.lock", "", &cfg); got != "/run/cinetag" {
		t.Fatalf("lock path should win, got %q", got)
	}
	if got := DeriveStateDir("", "/data/tags.db", &cfg); got != "/data" {
		t.Fatalf("store path should win, got %q", got)
	}
	if got := DeriveStateDir("", "", &cfg); got != "/var/lib/cinetag" {
		t.Fatalf("config fallback, got %q", got)
	}
	if got := DeriveStateDir("", "", nil); got != "" {
		t.Fatalf("expected empty with no hints, got %q", got)
	}
}

func TestForceKillProcessRefusesSelf(t *testing.T) {
	base := t.TempDir()
	pidPath := filepath.Join(base, "cinetagd.pid")
	if err := os.WriteFile(pidPath, []byte("0\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	if _, err := ForceKillProcess(pidPath, "", os.Getpid()); err == nil {
		t.Fatal("expected refusal to kill current process")
	}
}

func TestIsDaemonUnavailable(t *testing.T) {
	if !isDaemonUnavailable(os.ErrNotExist) {
		t.Fatal("missing socket should read as unavailable")
	}
	if !isDaemonUnavailable(syscall.ECONNREFUSED) {
		t.Fatal("refused connection should read as unavailable")
	}
	if isDaemonUnavailable(syscall.EPERM) {
		t.Fatal("permission errors are not unavailability")
	}
}
