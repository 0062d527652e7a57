package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"cinetag/internal/config"
	"cinetag/internal/fileutil"
	"cinetag/internal/inventory"
	"cinetag/internal/logging"
	"cinetag/internal/services"
	"cinetag/internal/tagstore"
)

// Reconciler makes the on-disk tree under the tag root exactly match the
// assignment store projected onto the current movie inventory.
type Reconciler struct {
	movieRoot string
	tagRoot   string
	workers   int
	store     *tagstore.Store
	logger    *slog.Logger
}

// New constructs a filesystem reconciler.
func New(cfg *config.Config, store *tagstore.Store, logger *slog.Logger) *Reconciler {
	workers := cfg.Reconcile.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Reconciler{
		movieRoot: cfg.Paths.MovieDir,
		tagRoot:   cfg.Paths.TagDir,
		workers:   workers,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "reconciler"),
	}
}

// Run executes one snapshot-diff-apply pass. The pass is idempotent: running
// it twice with no intervening changes performs zero mutations on the second
// run. Individual link failures are collected in the result and never abort
// the rest of the pass; only whole-pass problems (unreadable roots, store
// errors) return a non-nil error.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	entries, err := inventory.Scan(r.movieRoot)
	if err != nil {
		return nil, err
	}
	existing := inventory.Paths(entries)

	pruned, err := r.store.Prune(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("prune assignments: %w", err)
	}

	assignments, err := r.store.Assignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	desired := BuildDesired(assignments, existing)

	if err := fileutil.EnsureDir(r.tagRoot); err != nil {
		return nil, err
	}
	if !fileutil.Writable(r.tagRoot) {
		return nil, services.Wrap(services.ErrIO, "reconciler", "preflight",
			fmt.Sprintf("tag root %q is not writable", r.tagRoot), nil)
	}
	observed, err := Observe(r.tagRoot)
	if err != nil {
		return nil, err
	}

	plan := Diff(desired, observed)
	result := r.apply(ctx, plan)
	result.Pruned = pruned
	result.LiveTags = liveTags(desired, result)

	logger := logging.WithContext(ctx, r.logger)
	if result.Mutations() > 0 || len(result.Failures) > 0 {
		logger.Info("reconciliation pass complete", logging.Args(
			logging.Int("created", len(result.Created)),
			logging.Int("removed", len(result.Removed)),
			logging.Int("pruned", len(result.Pruned)),
			logging.Int("failures", len(result.Failures)),
			logging.Bool("partial", result.Partial),
		)...)
	} else {
		logger.Debug("reconciliation pass converged with no changes")
	}
	for _, path := range result.Foreign {
		logger.Warn("unexpected content under tag root", logging.String("path", path))
	}

	return result, nil
}

// liveTags returns the tags that hold at least one valid link after the
// pass: tags with desired links minus those whose every create failed.
func liveTags(desired Desired, result *Result) []string {
	counts := make(map[string]int)
	for key := range desired.Links {
		counts[key.Tag]++
	}
	for tag, failed := range result.FailedCreates() {
		counts[tag] -= failed
	}

	tags := make([]string, 0, len(counts))
	for tag, count := range counts {
		if count > 0 {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}
