package tagstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"cinetag/internal/services"
)

const maxTagNameBytes = 255

// NormalizeTagName validates a user-supplied tag name and returns its
// canonical (NFC) form. Tags become directory names under the tag root, so
// anything that is not a single clean path segment is rejected.
func NormalizeTagName(name string) (string, error) {
	normalized := norm.NFC.String(strings.TrimSpace(name))
	if normalized == "" {
		return "", services.Wrap(services.ErrConfiguration, "tagstore", "validate", "tag name is empty", nil)
	}
	if len(normalized) > maxTagNameBytes {
		return "", services.Wrap(services.ErrConfiguration, "tagstore", "validate",
			fmt.Sprintf("tag name exceeds %d bytes", maxTagNameBytes), nil)
	}
	if normalized == "." || normalized == ".." {
		return "", services.Wrap(services.ErrConfiguration, "tagstore", "validate",
			fmt.Sprintf("tag name %q is reserved", normalized), nil)
	}
	if strings.ContainsAny(normalized, "/\x00") {
		return "", services.Wrap(services.ErrConfiguration, "tagstore", "validate",
			fmt.Sprintf("tag name %q must be a single path segment", normalized), nil)
	}
	return normalized, nil
}

// pathSuffix derives the stable disambiguation suffix for a canonical movie
// path. The first eight hex characters of the SHA-256 keep leaf names short
// while staying deterministic across runs.
func pathSuffix(canonicalPath string) string {
	sum := sha256.Sum256([]byte(canonicalPath))
	return hex.EncodeToString(sum[:])[:8]
}

// MovieID returns the identifier the HTTP API and CLI use to reference a
// movie: the same stable hash prefix used for leaf disambiguation.
func MovieID(canonicalPath string) string {
	return pathSuffix(canonicalPath)
}

// leafName computes the symlink leaf for an assignment. Colliding base names
// within one tag get the path hash spliced in before the extension so both
// titles can coexist; unique names stay untouched.
func leafName(movieName, canonicalPath string, collides bool) string {
	if !collides {
		return movieName
	}
	ext := filepath.Ext(movieName)
	base := strings.TrimSuffix(movieName, ext)
	return fmt.Sprintf("%s [%s]%s", base, pathSuffix(canonicalPath), ext)
}

// assignLeaves fills the Leaf field for every assignment, applying
// disambiguation per tag. The input order is preserved.
func assignLeaves(assignments []Assignment) {
	type key struct{ tag, name string }
	counts := make(map[key]int, len(assignments))
	for _, a := range assignments {
		counts[key{a.Tag, a.MovieName}]++
	}
	for i := range assignments {
		a := &assignments[i]
		a.Leaf = leafName(a.MovieName, a.MoviePath, counts[key{a.Tag, a.MovieName}] > 1)
	}
}
