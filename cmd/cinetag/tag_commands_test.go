package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cinetag/internal/testsupport"
)

func TestTagAssignFlow(t *testing.T) {
	env := setupCLITestEnv(t)

	heat := testsupport.AddMovie(t, env.cfg, "Heat (1995).mkv")
	testsupport.AddMovie(t, env.cfg, "Alien (1979).mkv")

	stdout, _, err := runCLI(t, []string{"tag", "create", "Film Noir"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("tag create: %v", err)
	}
	requireContains(t, stdout, `Created tag "Film Noir"`)

	stdout, _, err = runCLI(t, []string{"tag", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("tag list: %v", err)
	}
	requireContains(t, stdout, "Film Noir")

	stdout, _, err = runCLI(t, []string{"assign", "Film Noir", "Heat (1995).mkv"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	requireContains(t, stdout, `Assigned "Film Noir" to "Heat (1995).mkv"`)

	link := filepath.Join(env.cfg.Paths.TagDir, "Film Noir", "Heat (1995).mkv")
	if _, err := os.Lstat(link); err != nil {
		t.Fatalf("expected symlink at %s: %v", link, err)
	}

	stdout, _, err = runCLI(t, []string{"movies"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("movies: %v", err)
	}
	requireContains(t, stdout, "Heat (1995).mkv")
	requireContains(t, stdout, "Alien (1979).mkv")
	requireContains(t, stdout, "Film Noir")

	stdout, _, err = runCLI(t, []string{"toggle", "Film Noir", heat.Path}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	requireContains(t, stdout, `Removed "Film Noir"`)
	if _, err := os.Lstat(link); !os.IsNotExist(err) {
		t.Fatalf("expected symlink removed, got %v", err)
	}

	stdout, _, err = runCLI(t, []string{"tag", "delete", "Film Noir"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("tag delete: %v", err)
	}
	requireContains(t, stdout, `Deleted tag "Film Noir"`)
}

func TestMoviesJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.AddMovie(t, env.cfg, "Blade Runner (1982).mkv")

	stdout, _, err := runCLI(t, []string{"movies", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("movies --json: %v", err)
	}
	if !strings.Contains(stdout, `"movies"`) || !strings.Contains(stdout, "Blade Runner (1982).mkv") {
		t.Fatalf("unexpected JSON output: %s", stdout)
	}
}

func TestReconcileCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.AddMovie(t, env.cfg, "Seven (1995).mkv")

	stdout, _, err := runCLI(t, []string{"reconcile"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	requireContains(t, stdout, "Reconcile complete")
}

func TestDialErrorSuggestsStart(t *testing.T) {
	env := setupCLITestEnv(t)

	missing := filepath.Join(t.TempDir(), "missing.sock")
	_, _, err := runCLI(t, []string{"tag", "list"}, missing, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "cinetag start") {
		t.Fatalf("expected dial hint, got %v", err)
	}
}
