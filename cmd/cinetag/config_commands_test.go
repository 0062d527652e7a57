package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "config.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, filepath.Join(base, "missing.sock"), "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "movie_dir") {
		t.Fatalf("sample config missing movie_dir:\n%s", data)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "config.toml")
	if err := os.WriteFile(target, []byte("# existing\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	_, _, err := runCLI(t, []string{"config", "init", "--path", target}, filepath.Join(base, "missing.sock"), "")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already-exists error, got %v", err)
	}

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, filepath.Join(base, "missing.sock"), "")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration")
}

func TestConfigValidateWithConfigFile(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"config", "validate"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, stdout, "Configuration valid")
}
