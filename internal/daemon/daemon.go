package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"cinetag/internal/config"
	"cinetag/internal/engine"
	"cinetag/internal/inventory"
	"cinetag/internal/logging"
	"cinetag/internal/notifications"
	"cinetag/internal/tagstore"
)

// Daemon owns the long-running reconciliation services and enforces
// single-instance execution per state directory.
type Daemon struct {
	cfg      *config.Config
	store    *tagstore.Store
	engine   *engine.Engine
	notifier notifications.Service
	logger   *slog.Logger

	lockPath string
	lock     *flock.Flock

	watcher *movieWatcher
	api     *apiServer

	running atomic.Bool
	cancel  context.CancelFunc

	mu          sync.Mutex
	lastOutcome *engine.Outcome
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	MovieDir     string
	TagDir       string
	StorePath    string
	LockFilePath string
	Watching     bool
	JellyfinSync bool
	LastOutcome  *engine.Outcome
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *tagstore.Store, eng *engine.Engine, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || eng == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, engine, and logger")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		store:    store,
		engine:   eng,
		notifier: notifications.NewService(cfg),
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	return d, nil
}

// Start acquires the instance lock, runs an initial reconciliation cycle,
// and launches the watcher and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cinetag daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	if d.cfg.Reconcile.Watch {
		watcher, err := newMovieWatcher(d.cfg, d.logger, func() { d.triggerReconcile(runCtx) })
		if err != nil {
			d.teardown()
			return fmt.Errorf("start movie watcher: %w", err)
		}
		d.watcher = watcher
		d.watcher.start(runCtx)
	}

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.teardown()
		return fmt.Errorf("start api server: %w", err)
	}
	d.api = api
	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.teardown()
			return err
		}
	}

	// The startup pass converges state that drifted while the daemon was
	// down.
	go d.triggerReconcile(runCtx)

	d.logger.Info("cinetag daemon started",
		logging.String("lock", d.lockPath),
		logging.Bool("watching", d.watcher != nil),
	)
	return nil
}

// Stop stops background services and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.teardown()
	d.logger.Info("cinetag daemon stopped")
}

func (d *Daemon) teardown() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.watcher != nil {
		d.watcher.stop()
		d.watcher = nil
	}
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// triggerReconcile runs a cycle on behalf of the watcher or startup; errors
// are logged and notified, never returned, because no caller is waiting. The
// context is the one captured at Start so a concurrent teardown cannot race
// this goroutine on shared daemon state.
func (d *Daemon) triggerReconcile(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := d.Reconcile(ctx); err != nil {
		d.logger.Error("triggered reconciliation failed", logging.Error(err))
	}
}

// Reconcile runs one full reconcile-and-sync cycle and records its outcome.
func (d *Daemon) Reconcile(ctx context.Context) (*engine.Outcome, error) {
	outcome, err := d.engine.ReconcileAndSync(ctx)
	if err != nil {
		return nil, err
	}
	if !outcome.Coalesced {
		d.mu.Lock()
		d.lastOutcome = outcome
		d.mu.Unlock()
	}
	return outcome, nil
}

// Tags lists all tag names.
func (d *Daemon) Tags(ctx context.Context) ([]string, error) {
	return d.store.Tags(ctx)
}

// Assignments lists every tag assignment.
func (d *Daemon) Assignments(ctx context.Context) ([]tagstore.Assignment, error) {
	return d.store.Assignments(ctx)
}

// CreateTag registers a new empty tag.
func (d *Daemon) CreateTag(ctx context.Context, name string) (string, error) {
	return d.store.CreateTag(ctx, name)
}

// DeleteTag removes a tag and its assignments, then reconciles so the tag's
// directory disappears.
func (d *Daemon) DeleteTag(ctx context.Context, name string) (*engine.Outcome, error) {
	if err := d.store.DeleteTag(ctx, name); err != nil {
		return nil, err
	}
	return d.Reconcile(ctx)
}

// Movies scans the movie inventory and attaches assigned tags per entry.
func (d *Daemon) Movies(ctx context.Context) ([]inventory.Entry, map[string][]string, error) {
	entries, err := inventory.Scan(d.cfg.Paths.MovieDir)
	if err != nil {
		return nil, nil, err
	}
	tagsByPath := make(map[string][]string, len(entries))
	for _, entry := range entries {
		tags, err := d.store.TagsFor(ctx, entry.Path)
		if err != nil {
			return nil, nil, err
		}
		tagsByPath[entry.Path] = tags
	}
	return entries, tagsByPath, nil
}

// ResolveMovie finds an inventory entry by id, name, or path.
func (d *Daemon) ResolveMovie(ctx context.Context, ref string) (inventory.Entry, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return inventory.Entry{}, errors.New("movie reference is required")
	}
	entries, err := inventory.Scan(d.cfg.Paths.MovieDir)
	if err != nil {
		return inventory.Entry{}, err
	}
	for _, entry := range entries {
		if entry.Path == ref || entry.Name == ref || tagstore.MovieID(entry.Path) == ref {
			return entry, nil
		}
	}
	return inventory.Entry{}, fmt.Errorf("movie %q not found in %s", ref, d.cfg.Paths.MovieDir)
}

// Toggle flips one (tag, movie) assignment and reconciles. It reports
// whether the movie is now assigned to the tag.
func (d *Daemon) Toggle(ctx context.Context, tag, movieRef string) (bool, *engine.Outcome, error) {
	entry, err := d.ResolveMovie(ctx, movieRef)
	if err != nil {
		return false, nil, err
	}
	assigned, err := d.store.Toggle(ctx, tag, entry)
	if err != nil {
		return false, nil, err
	}
	outcome, err := d.Reconcile(ctx)
	return assigned, outcome, err
}

// Assign adds one (tag, movie) assignment and reconciles.
func (d *Daemon) Assign(ctx context.Context, tag, movieRef string) (*engine.Outcome, error) {
	entry, err := d.ResolveMovie(ctx, movieRef)
	if err != nil {
		return nil, err
	}
	if err := d.store.Add(ctx, tag, entry); err != nil {
		return nil, err
	}
	return d.Reconcile(ctx)
}

// Unassign removes one (tag, movie) assignment and reconciles.
func (d *Daemon) Unassign(ctx context.Context, tag, movieRef string) (*engine.Outcome, error) {
	entry, err := d.ResolveMovie(ctx, movieRef)
	if err != nil {
		return nil, err
	}
	if err := d.store.Remove(ctx, tag, entry.Path); err != nil {
		return nil, err
	}
	return d.Reconcile(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// VisibleTag reports whether the configured policy exposes the given tag.
func (d *Daemon) VisibleTag(tag string) bool {
	switch d.cfg.Visibility.Mode {
	case config.VisibilityOptIn:
		for _, name := range d.cfg.Visibility.VisibleTags {
			if name == tag {
				return true
			}
		}
		return false
	default:
		for _, name := range d.cfg.Visibility.HiddenTags {
			if name == tag {
				return false
			}
		}
		return true
	}
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	last := d.lastOutcome
	d.mu.Unlock()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		MovieDir:     d.cfg.Paths.MovieDir,
		TagDir:       d.cfg.Paths.TagDir,
		StorePath:    d.cfg.StorePath(),
		LockFilePath: d.lockPath,
		Watching:     d.watcher != nil,
		JellyfinSync: d.cfg.Jellyfin.Enabled,
		LastOutcome:  last,
	}
}
