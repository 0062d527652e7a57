package reconciler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cinetag/internal/config"
	"cinetag/internal/inventory"
	"cinetag/internal/logging"
	"cinetag/internal/services"
	"cinetag/internal/tagstore"
)

type fixture struct {
	cfg   *config.Config
	store *tagstore.Store
	rec   *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{}
	cfg.Paths.MovieDir = filepath.Join(base, "movies")
	cfg.Paths.TagDir = filepath.Join(base, "tags")
	cfg.Reconcile.Workers = 2
	if err := os.MkdirAll(cfg.Paths.MovieDir, 0o755); err != nil {
		t.Fatalf("mkdir movies: %v", err)
	}

	store, err := tagstore.OpenPath(filepath.Join(base, "tags.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return &fixture{
		cfg:   cfg,
		store: store,
		rec:   New(cfg, store, logging.NewNop()),
	}
}

func (f *fixture) addMovie(t *testing.T, name string) inventory.Entry {
	t.Helper()
	path := filepath.Join(f.cfg.Paths.MovieDir, name)
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write movie: %v", err)
	}
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("resolve movie: %v", err)
	}
	return inventory.Entry{Path: canonical, Name: name}
}

func (f *fixture) assign(t *testing.T, tag string, movie inventory.Entry) {
	t.Helper()
	if err := f.store.Add(context.Background(), tag, movie); err != nil {
		t.Fatalf("assign %s -> %s: %v", tag, movie.Name, err)
	}
}

func (f *fixture) linkPath(tag, leaf string) string {
	return filepath.Join(f.cfg.Paths.TagDir, tag, leaf)
}

func TestRunMaterializesAssignments(t *testing.T) {
	f := newFixture(t)
	alien := f.addMovie(t, "A.mkv")
	f.addMovie(t, "B.mkv")
	f.assign(t, "action", alien)

	result, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("Created = %+v", result.Created)
	}

	target, err := os.Readlink(f.linkPath("action", "A.mkv"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != alien.Path {
		t.Fatalf("link target = %q, want %q", target, alien.Path)
	}
	if _, err := os.Lstat(f.linkPath("action", "B.mkv")); !os.IsNotExist(err) {
		t.Fatal("unassigned movie must not be linked")
	}
	if len(result.LiveTags) != 1 || result.LiveTags[0] != "action" {
		t.Fatalf("LiveTags = %v", result.LiveTags)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.assign(t, "action", f.addMovie(t, "A.mkv"))
	f.assign(t, "noir", f.addMovie(t, "B.mkv"))

	if _, err := f.rec.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Mutations() != 0 {
		t.Fatalf("second run performed %d mutations: %+v", second.Mutations(), second)
	}
	if len(second.Failures) != 0 {
		t.Fatalf("second run failures: %+v", second.Failures)
	}
}

func TestRunRemovesUnassignedLinkAndEmptyDir(t *testing.T) {
	f := newFixture(t)
	alien := f.addMovie(t, "A.mkv")
	f.assign(t, "action", alien)

	if _, err := f.rec.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := f.store.Remove(context.Background(), "action", alien.Path); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	result, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Removed) != 1 {
		t.Fatalf("Removed = %+v", result.Removed)
	}
	if len(result.RemovedDirs) != 1 || result.RemovedDirs[0] != "action" {
		t.Fatalf("RemovedDirs = %v", result.RemovedDirs)
	}
	if _, err := os.Stat(filepath.Join(f.cfg.Paths.TagDir, "action")); !os.IsNotExist(err) {
		t.Fatal("empty tag directory must be removed")
	}
}

func TestRunCleansOrphanLink(t *testing.T) {
	f := newFixture(t)
	alien := f.addMovie(t, "A.mkv")
	f.assign(t, "action", alien)
	if _, err := f.rec.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	orphan := f.linkPath("action", "orphan.mkv")
	if err := os.Symlink(alien.Path, orphan); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	result, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Removed) != 1 || result.Removed[0].Leaf != "orphan.mkv" {
		t.Fatalf("Removed = %+v", result.Removed)
	}
	if _, err := os.Lstat(orphan); !os.IsNotExist(err) {
		t.Fatal("orphan link must be removed")
	}
}

func TestRunCorrectsStaleTarget(t *testing.T) {
	f := newFixture(t)
	alien := f.addMovie(t, "A.mkv")
	f.assign(t, "action", alien)
	if _, err := f.rec.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Point the existing slot somewhere else behind the reconciler's back.
	link := f.linkPath("action", "A.mkv")
	if err := os.Remove(link); err != nil {
		t.Fatalf("remove link: %v", err)
	}
	if err := os.Symlink("/somewhere/else", link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	result, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Created) != 1 || len(result.Removed) != 1 {
		t.Fatalf("expected replace, got %+v", result)
	}
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != alien.Path {
		t.Fatalf("target = %q, want %q", target, alien.Path)
	}
}

func TestRunPrunesVanishedMovies(t *testing.T) {
	f := newFixture(t)
	alien := f.addMovie(t, "A.mkv")
	f.assign(t, "action", alien)
	if _, err := f.rec.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if err := os.Remove(alien.Path); err != nil {
		t.Fatalf("remove movie: %v", err)
	}

	result, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Pruned) != 1 || result.Pruned[0].MoviePath != alien.Path {
		t.Fatalf("Pruned = %+v", result.Pruned)
	}
	if _, err := os.Lstat(f.linkPath("action", "A.mkv")); !os.IsNotExist(err) {
		t.Fatal("link to vanished movie must be removed")
	}
	assignments, err := f.store.Assignments(context.Background())
	if err != nil {
		t.Fatalf("Assignments: %v", err)
	}
	if len(assignments) != 0 {
		t.Fatalf("store must be pruned, got %+v", assignments)
	}
}

func TestRunProtectsForeignContent(t *testing.T) {
	f := newFixture(t)
	alien := f.addMovie(t, "A.mkv")
	f.assign(t, "stale", alien)
	if _, err := f.rec.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Drop real data into the tag dir, then unassign so the dir is
	// scheduled for removal.
	dataFile := filepath.Join(f.cfg.Paths.TagDir, "stale", "precious.txt")
	if err := os.WriteFile(dataFile, []byte("do not delete"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := f.store.Remove(context.Background(), "stale", alien.Path); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	result, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(dataFile); err != nil {
		t.Fatalf("foreign file must survive: %v", err)
	}
	if _, err := os.Lstat(f.linkPath("stale", "A.mkv")); err != nil {
		t.Fatal("aborted subtree must keep its links untouched")
	}
	found := false
	for _, failure := range result.Failures {
		if errors.Is(failure.Err, services.ErrUnexpectedContent) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected UnexpectedContent failure, got %+v", result.Failures)
	}
}

func TestApplyRefusesToRemoveNonSymlink(t *testing.T) {
	f := newFixture(t)

	// A removal planned against a symlink slot must back off when a real
	// file has taken its place since the snapshot.
	if err := os.MkdirAll(filepath.Join(f.cfg.Paths.TagDir, "action"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	occupied := f.linkPath("action", "A.mkv")
	if err := os.WriteFile(occupied, []byte("not a link"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	plan := Plan{Ops: []linkOp{{Kind: opRemove, Key: LinkKey{Tag: "action", Leaf: "A.mkv"}}}}
	result := f.rec.apply(context.Background(), plan)

	if _, err := os.Stat(occupied); err != nil {
		t.Fatalf("file must survive the pass: %v", err)
	}
	if len(result.Removed) != 0 {
		t.Fatalf("Removed = %+v", result.Removed)
	}
	if len(result.Failures) != 1 || !errors.Is(result.Failures[0].Err, services.ErrUnexpectedContent) {
		t.Fatalf("Failures = %+v", result.Failures)
	}
}

func TestRunRejectsUnwritableTagRoot(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permission checks")
	}
	f := newFixture(t)
	if err := os.MkdirAll(f.cfg.Paths.TagDir, 0o500); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Cleanup(func() { os.Chmod(f.cfg.Paths.TagDir, 0o755) })

	_, err := f.rec.Run(context.Background())
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
}

func TestRunIsolatesSingleLinkFailure(t *testing.T) {
	f := newFixture(t)
	names := []string{"A.mkv", "B.mkv", "C.mkv", "D.mkv", "E.mkv"}
	for _, name := range names {
		f.assign(t, "action", f.addMovie(t, name))
	}

	// Occupy one desired slot with a regular file so its symlink creation
	// fails while the rest of the pass proceeds.
	if err := os.MkdirAll(filepath.Join(f.cfg.Paths.TagDir, "action"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(f.linkPath("action", "C.mkv"), []byte("squatter"), 0o644); err != nil {
		t.Fatalf("write squatter: %v", err)
	}

	result, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Created) != 4 {
		t.Fatalf("expected 4 created links, got %+v", result.Created)
	}
	createFailures := 0
	for _, failure := range result.Failures {
		if failure.Op == "create" {
			createFailures++
		}
	}
	if createFailures != 1 {
		t.Fatalf("expected exactly 1 create failure, got %+v", result.Failures)
	}
}

func TestApplyMarksPartialOnCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ops := []linkOp{{
		Kind:   opCreate,
		Key:    LinkKey{Tag: "action", Leaf: "A.mkv"},
		Target: filepath.Join(f.cfg.Paths.MovieDir, "A.mkv"),
	}}
	collector := &resultCollector{}
	if !f.rec.applyLinkOps(ctx, ops, collector) {
		t.Fatal("cancelled dispatch must report partial")
	}
	if result := collector.finish(); len(result.Created) != 0 {
		t.Fatalf("no new operations may start after cancellation: %+v", result.Created)
	}
}

func TestLiveTagsExcludeFullyFailedTag(t *testing.T) {
	f := newFixture(t)
	f.assign(t, "action", f.addMovie(t, "A.mkv"))
	f.assign(t, "broken", f.addMovie(t, "B.mkv"))

	if err := os.MkdirAll(filepath.Join(f.cfg.Paths.TagDir, "broken"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(f.linkPath("broken", "B.mkv"), []byte("squatter"), 0o644); err != nil {
		t.Fatalf("write squatter: %v", err)
	}

	result, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.LiveTags) != 1 || result.LiveTags[0] != "action" {
		t.Fatalf("LiveTags = %v", result.LiveTags)
	}
}
