package inventory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cinetag/internal/services"
)

// Entry identifies one on-disk movie title. Identity is the canonical
// absolute path; Name is only the display/link leaf base.
type Entry struct {
	Path string
	Name string
}

var movieExtensions = map[string]struct{}{
	".mkv":  {},
	".mp4":  {},
	".avi":  {},
	".m4v":  {},
	".mov":  {},
	".ts":   {},
	".webm": {},
}

// Scan reads the movie root and returns one entry per title: every
// subdirectory (disc-structure folders) and every regular file with a known
// movie extension. Symlinks inside the root are resolved and the target
// becomes the identity. The result is a fresh snapshot sorted by path; Scan
// never mutates anything.
func Scan(root string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "inventory", "scan", fmt.Sprintf("read movie root %q", root), err)
	}

	seen := make(map[string]struct{}, len(dirEntries))
	entries := make([]Entry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(root, name)
		info, err := os.Stat(path)
		if err != nil {
			// Dangling symlink or a file racing with the scan; skip it and
			// let the next pass pick it up.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, services.Wrap(services.ErrIO, "inventory", "scan", fmt.Sprintf("stat %q", path), err)
		}
		if !info.IsDir() && !isMovieFile(name) {
			continue
		}

		canonical, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "inventory", "scan", fmt.Sprintf("resolve %q", path), err)
		}
		canonical, err = filepath.Abs(canonical)
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "inventory", "scan", fmt.Sprintf("absolutize %q", canonical), err)
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		entries = append(entries, Entry{Path: canonical, Name: name})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Paths returns the set of canonical paths in the snapshot.
func Paths(entries []Entry) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		set[entry.Path] = struct{}{}
	}
	return set
}

func isMovieFile(name string) bool {
	_, ok := movieExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
