package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"cinetag/internal/fileutil"
	"cinetag/internal/services"
)

// apply executes a plan against the tag root. Directory creation precedes
// link creation and link removal precedes directory removal, so no link ever
// lives in a missing directory and no directory is removed while non-empty.
func (r *Reconciler) apply(ctx context.Context, plan Plan) *Result {
	collector := &resultCollector{}
	collector.result.Foreign = plan.Foreign

	for _, path := range plan.Foreign {
		collector.addFailure(Failure{
			Path: path,
			Op:   "inspect",
			Err:  services.Wrap(services.ErrUnexpectedContent, "reconciler", "inspect", path, nil),
		})
	}

	createdDirs := make([]string, 0, len(plan.CreateDirs))
	for _, tag := range plan.CreateDirs {
		dir := filepath.Join(r.tagRoot, tag)
		if err := fileutil.EnsureDir(dir); err != nil {
			collector.addFailure(Failure{Tag: tag, Path: dir, Op: "mkdir", Err: err})
			continue
		}
		createdDirs = append(createdDirs, tag)
	}

	partial := r.applyLinkOps(ctx, plan.Ops, collector)

	removedDirs := make([]string, 0, len(plan.RemoveDirs))
	for _, tag := range plan.RemoveDirs {
		if partial {
			break
		}
		dir := filepath.Join(r.tagRoot, tag)
		removed, err := fileutil.RemoveIfEmpty(dir)
		if err != nil {
			collector.addFailure(Failure{Tag: tag, Path: dir, Op: "rmdir", Err: err})
			continue
		}
		if removed {
			removedDirs = append(removedDirs, tag)
		}
	}

	result := collector.finish()
	result.CreatedDirs = createdDirs
	result.RemovedDirs = removedDirs
	result.Partial = partial
	return result
}

// applyLinkOps fans link operations out to a bounded worker pool. Operations
// are keyed by disjoint paths, so they are safe to run concurrently; the
// surrounding snapshot and diff phases stay strictly sequential. Returns
// true when cancellation stopped the dispatch early.
func (r *Reconciler) applyLinkOps(ctx context.Context, ops []linkOp, collector *resultCollector) bool {
	if len(ops) == 0 {
		return ctx.Err() != nil
	}

	jobs := make(chan linkOp)
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for op := range jobs {
				r.applyLinkOp(op, collector)
			}
		}()
	}

	partial := false
	for _, op := range ops {
		// In-flight operations finish; nothing new is started after a
		// cancellation request.
		if ctx.Err() != nil {
			partial = true
			break
		}
		jobs <- op
	}
	close(jobs)
	wg.Wait()
	return partial
}

func (r *Reconciler) applyLinkOp(op linkOp, collector *resultCollector) {
	path := filepath.Join(r.tagRoot, op.Key.Tag, op.Key.Leaf)

	if op.Kind == opRemove || op.Kind == opReplace {
		// The slot was a symlink at snapshot time; if something else sits
		// there now the pass must not destroy it.
		isLink, err := fileutil.IsSymlink(path)
		if err != nil {
			collector.addFailure(Failure{Tag: op.Key.Tag, Leaf: op.Key.Leaf, Path: path, Op: op.Kind.String(), Err: err})
			return
		}
		if !isLink {
			if _, statErr := os.Lstat(path); statErr == nil {
				collector.addFailure(Failure{
					Tag:  op.Key.Tag,
					Leaf: op.Key.Leaf,
					Path: path,
					Op:   op.Kind.String(),
					Err:  services.Wrap(services.ErrUnexpectedContent, "reconciler", op.Kind.String(), path, nil),
				})
				return
			}
			// Vanished since the snapshot; Remove below reports it.
		}
		if err := os.Remove(path); err != nil {
			collector.addFailure(Failure{Tag: op.Key.Tag, Leaf: op.Key.Leaf, Path: path, Op: op.Kind.String(), Err: err})
			return
		}
		collector.addRemoved(Link{Tag: op.Key.Tag, Leaf: op.Key.Leaf})
	}

	if op.Kind == opCreate || op.Kind == opReplace {
		if err := os.Symlink(op.Target, path); err != nil {
			kind := "create"
			if op.Kind == opReplace {
				kind = "replace"
			}
			collector.addFailure(Failure{Tag: op.Key.Tag, Leaf: op.Key.Leaf, Path: path, Op: kind, Err: err})
			return
		}
		collector.addCreated(Link{Tag: op.Key.Tag, Leaf: op.Key.Leaf, Target: op.Target})
	}
}
