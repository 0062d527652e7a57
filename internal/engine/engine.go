package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"cinetag/internal/config"
	"cinetag/internal/logging"
	"cinetag/internal/notifications"
	"cinetag/internal/reconciler"
	"cinetag/internal/services"
	"cinetag/internal/services/jellyfin"
	"cinetag/internal/tagstore"
	"cinetag/internal/visibility"
)

// Engine runs full reconciliation cycles: filesystem first, then library
// visibility. One engine owns one (tag root, account) pair.
type Engine struct {
	cfg        *config.Config
	reconciler *reconciler.Reconciler
	sync       *visibility.Synchronizer
	notifier   notifications.Service
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
	pending bool
}

// New wires an engine from configuration. The visibility synchronizer is
// only attached when jellyfin is enabled.
func New(cfg *config.Config, store *tagstore.Store, logger *slog.Logger) *Engine {
	eng := &Engine{
		cfg:        cfg,
		reconciler: reconciler.New(cfg, store, logger),
		notifier:   notifications.NewService(cfg),
		logger:     logging.NewComponentLogger(logger, "engine"),
	}
	if cfg.Jellyfin.Enabled {
		eng.sync = visibility.New(cfg, jellyfin.NewClient(cfg), logger)
	}
	return eng
}

// NewWithGateway wires an engine against an explicit gateway, mainly for
// tests.
func NewWithGateway(cfg *config.Config, store *tagstore.Store, logger *slog.Logger, gateway visibility.Gateway) *Engine {
	eng := &Engine{
		cfg:        cfg,
		reconciler: reconciler.New(cfg, store, logger),
		notifier:   notifications.NewService(cfg),
		logger:     logging.NewComponentLogger(logger, "engine"),
	}
	if gateway != nil {
		eng.sync = visibility.New(cfg, gateway, logger)
	}
	return eng
}

// SetNotifier replaces the notification service (used in tests).
func (e *Engine) SetNotifier(notifier notifications.Service) {
	if notifier != nil {
		e.notifier = notifier
	}
}

// ReconcileAndSync runs one cycle. Passes for the same engine never overlap:
// a trigger arriving while a pass is in flight is folded into a re-run after
// the current pass instead of racing it, and the late caller gets a
// coalesced outcome immediately.
func (e *Engine) ReconcileAndSync(ctx context.Context) (*Outcome, error) {
	e.mu.Lock()
	if e.running {
		e.pending = true
		e.mu.Unlock()
		return &Outcome{Coalesced: true}, nil
	}
	e.running = true
	e.mu.Unlock()

	for {
		outcome, err := e.runOnce(ctx)

		e.mu.Lock()
		if e.pending && err == nil && ctx.Err() == nil {
			e.pending = false
			e.mu.Unlock()
			continue
		}
		e.pending = false
		e.running = false
		e.mu.Unlock()
		return outcome, err
	}
}

func (e *Engine) runOnce(ctx context.Context) (*Outcome, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, e.logger)

	outcome := &Outcome{RunID: runID, StartedAt: time.Now().UTC()}
	logger.Info("reconciliation cycle started")

	fsResult, err := e.reconciler.Run(ctx)
	if err != nil {
		logger.Error("filesystem reconciliation failed", logging.Error(err))
		if notifyErr := e.notifier.NotifyReconcileFailed(ctx, runID, err); notifyErr != nil {
			logger.Warn("failure notification not delivered", logging.Error(notifyErr))
		}
		return nil, err
	}
	outcome.Reconcile = fsResult

	if len(fsResult.Foreign) > 0 {
		if notifyErr := e.notifier.NotifyForeignContent(ctx, fsResult.Foreign); notifyErr != nil {
			logger.Warn("foreign-content notification not delivered", logging.Error(notifyErr))
		}
	}

	// Grants follow links: a tag only becomes visible once its directory has
	// real content, within the same cycle.
	if e.sync != nil && !fsResult.Partial {
		visResult, err := e.sync.Sync(ctx, e.visibleTags(fsResult.LiveTags))
		if err != nil {
			logger.Error("visibility sync failed", logging.Error(err))
			outcome.VisibilityErr = err
		} else {
			outcome.Visibility = visResult
		}
	}

	outcome.FinishedAt = time.Now().UTC()
	grantChanges := 0
	if outcome.Visibility != nil {
		grantChanges = outcome.Visibility.Mutations()
	}
	if outcome.Mutations() > 0 || outcome.FailureCount() > 0 {
		if notifyErr := e.notifier.NotifyReconcileCompleted(ctx, runID, fsResult.Mutations(), grantChanges, outcome.FailureCount()); notifyErr != nil {
			logger.Warn("completion notification not delivered", logging.Error(notifyErr))
		}
	}
	logger.Info("reconciliation cycle finished",
		logging.Int("link_changes", fsResult.Mutations()),
		logging.Int("grant_changes", grantChanges),
		logging.Int("failures", outcome.FailureCount()),
		logging.Duration("elapsed", outcome.FinishedAt.Sub(outcome.StartedAt)),
	)
	return outcome, nil
}

// visibleTags applies the visibility policy to the tags that currently carry
// content.
func (e *Engine) visibleTags(live []string) []string {
	switch e.cfg.Visibility.Mode {
	case config.VisibilityOptIn:
		allowed := make(map[string]struct{}, len(e.cfg.Visibility.VisibleTags))
		for _, tag := range e.cfg.Visibility.VisibleTags {
			allowed[tag] = struct{}{}
		}
		var visible []string
		for _, tag := range live {
			if _, ok := allowed[tag]; ok {
				visible = append(visible, tag)
			}
		}
		return visible
	default:
		hidden := make(map[string]struct{}, len(e.cfg.Visibility.HiddenTags))
		for _, tag := range e.cfg.Visibility.HiddenTags {
			hidden[tag] = struct{}{}
		}
		visible := make([]string, 0, len(live))
		for _, tag := range live {
			if _, ok := hidden[tag]; !ok {
				visible = append(visible, tag)
			}
		}
		return slices.Clip(visible)
	}
}
