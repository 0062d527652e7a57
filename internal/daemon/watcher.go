package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cinetag/internal/config"
	"cinetag/internal/logging"
)

// movieWatcher monitors the movie root and triggers reconciliation when
// entries appear, disappear, or are renamed. Rapid event bursts (a copy in
// progress, a batch move) collapse into one trigger per debounce window. A
// periodic rescan backstops events the watcher can drop, such as changes on
// network mounts.
type movieWatcher struct {
	dir      string
	debounce time.Duration
	rescan   time.Duration
	logger   *slog.Logger
	trigger  func()

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func newMovieWatcher(cfg *config.Config, logger *slog.Logger, trigger func()) (*movieWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(cfg.Paths.MovieDir); err != nil {
		fw.Close()
		return nil, err
	}

	debounce := time.Duration(cfg.Reconcile.DebounceSeconds) * time.Second
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	rescan := time.Duration(cfg.Reconcile.RescanIntervalMinutes) * time.Minute

	return &movieWatcher{
		dir:      cfg.Paths.MovieDir,
		debounce: debounce,
		rescan:   rescan,
		logger:   logging.NewComponentLogger(logger, "watcher"),
		trigger:  trigger,
		watcher:  fw,
	}, nil
}

func (w *movieWatcher) start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	w.logger.Info("watching movie root",
		logging.String("dir", w.dir),
		logging.Duration("debounce", w.debounce),
		logging.Duration("rescan_interval", w.rescan),
	)
}

func (w *movieWatcher) run(ctx context.Context) {
	var rescanC <-chan time.Time
	if w.rescan > 0 {
		ticker := time.NewTicker(w.rescan)
		defer ticker.Stop()
		rescanC = ticker.C
	}

	// The timer stays stopped until an event arms it.
	debounce := time.NewTimer(w.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevantEvent(event) {
				continue
			}
			w.logger.Debug("movie root changed",
				logging.String("op", event.Op.String()),
				logging.String("path", event.Name),
			)
			debounce.Reset(w.debounce)
		case <-debounce.C:
			w.trigger()
		case <-rescanC:
			w.logger.Debug("periodic rescan")
			w.trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("movie watcher error", logging.Error(err))
		}
	}
}

func (w *movieWatcher) stop() {
	w.watcher.Close()
	w.wg.Wait()
}

// relevantEvent filters for operations that change the inventory. Pure
// writes are ignored until the file is renamed or a later event lands;
// chmod noise is dropped.
func relevantEvent(e fsnotify.Event) bool {
	return e.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
