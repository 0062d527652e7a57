package preflight

import (
	"context"

	"cinetag/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Movie root (always checked)
	results = append(results, CheckDirectoryAccess("Movie directory", cfg.Paths.MovieDir))

	// Tag root (when configured)
	if cfg.Paths.TagDir != "" {
		results = append(results, CheckDirectoryAccess("Tag directory", cfg.Paths.TagDir))
	}

	// Jellyfin
	if cfg.Jellyfin.Enabled {
		results = append(results, CheckJellyfin(ctx, cfg.Jellyfin.URL, cfg.Jellyfin.APIKey))
	}

	return results
}
