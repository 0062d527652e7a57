package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cinetag/internal/config"
	"cinetag/internal/inventory"
)

// AddMovie drops a movie file into the configured movie root and returns the
// inventory entry the scanner would produce for it.
func AddMovie(t testing.TB, cfg *config.Config, name string) inventory.Entry {
	t.Helper()

	path := filepath.Join(cfg.Paths.MovieDir, name)
	WriteFile(t, path, 1)
	canonical, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("absolutize %s: %v", path, err)
	}
	return inventory.Entry{Path: canonical, Name: name}
}

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}
