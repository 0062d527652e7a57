package reconciler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cinetag/internal/fileutil"
	"cinetag/internal/inventory"
	"cinetag/internal/tagstore"
)

// LinkKey identifies one managed link slot: a leaf name inside a tag
// directory.
type LinkKey struct {
	Tag  string
	Leaf string
}

// Desired is the immutable want-state snapshot for one pass: link targets
// keyed by slot plus the set of tag directories that must exist.
type Desired struct {
	Links map[LinkKey]string
	Tags  map[string]struct{}
}

// Observed is the immutable is-state snapshot read from the tag root.
// Foreign holds paths whose content is not a managed symlink; those subtrees
// are never touched.
type Observed struct {
	Links   map[LinkKey]string
	Tags    map[string]struct{}
	Foreign []string
}

// BuildDesired projects the assignment set onto the current inventory. Only
// assignments whose movie exists in the snapshot produce links; the store
// prune that runs before this call guarantees the two agree.
func BuildDesired(assignments []tagstore.Assignment, existing map[string]struct{}) Desired {
	desired := Desired{
		Links: make(map[LinkKey]string, len(assignments)),
		Tags:  make(map[string]struct{}),
	}
	for _, assignment := range assignments {
		if _, ok := existing[assignment.MoviePath]; !ok {
			continue
		}
		desired.Links[LinkKey{Tag: assignment.Tag, Leaf: assignment.Leaf}] = assignment.MoviePath
		desired.Tags[assignment.Tag] = struct{}{}
	}
	return desired
}

// DesiredFromInventory is a convenience wrapper over BuildDesired for
// callers holding the raw inventory slice.
func DesiredFromInventory(assignments []tagstore.Assignment, entries []inventory.Entry) Desired {
	return BuildDesired(assignments, inventory.Paths(entries))
}

// Observe walks the tag root two levels deep and records every managed link
// together with its current target. Anything that is not a directory of
// symlinks is reported as foreign content.
func Observe(tagRoot string) (Observed, error) {
	observed := Observed{
		Links: make(map[LinkKey]string),
		Tags:  make(map[string]struct{}),
	}

	rootEntries, err := os.ReadDir(tagRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return observed, nil
		}
		return observed, fmt.Errorf("read tag root %q: %w", tagRoot, err)
	}

	for _, rootEntry := range rootEntries {
		name := rootEntry.Name()
		path := filepath.Join(tagRoot, name)
		if !rootEntry.IsDir() {
			observed.Foreign = append(observed.Foreign, path)
			continue
		}
		observed.Tags[name] = struct{}{}

		tagEntries, err := os.ReadDir(path)
		if err != nil {
			return observed, fmt.Errorf("read tag directory %q: %w", path, err)
		}
		for _, tagEntry := range tagEntries {
			entryPath := filepath.Join(path, tagEntry.Name())
			if tagEntry.Type()&os.ModeSymlink == 0 {
				observed.Foreign = append(observed.Foreign, entryPath)
				continue
			}
			target, err := fileutil.ReadLinkTarget(entryPath)
			if err != nil {
				return observed, err
			}
			observed.Links[LinkKey{Tag: name, Leaf: tagEntry.Name()}] = target
		}
	}

	return observed, nil
}
