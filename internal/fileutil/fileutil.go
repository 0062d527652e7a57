// Package fileutil provides the symlink and directory primitives shared by
// the reconciler and its tests.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// IsSymlink reports whether path is a symbolic link. Missing paths return
// false with no error.
func IsSymlink(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}

// ReadLinkTarget returns the target a symlink points at, without resolving it.
func ReadLinkTarget(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", fmt.Errorf("read link %q: %w", path, err)
	}
	return target, nil
}

// EnsureDir creates dir (and parents) when absent.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

// RemoveIfEmpty deletes dir when it contains no entries. Returns true when
// the directory was removed.
func RemoveIfEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", dir, err)
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := os.Remove(dir); err != nil {
		return false, fmt.Errorf("remove directory %q: %w", dir, err)
	}
	return true, nil
}

// Writable reports whether the current process can create entries in dir.
func Writable(dir string) bool {
	return unix.Access(dir, unix.W_OK|unix.X_OK) == nil
}
