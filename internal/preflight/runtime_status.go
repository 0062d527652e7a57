package preflight

import (
	"context"
	"strings"

	"cinetag/internal/config"
)

// CheckJellyfinFromConfig evaluates Jellyfin status from config and connectivity.
func CheckJellyfinFromConfig(cfg *config.Config) Result {
	const name = "Jellyfin"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Jellyfin.Enabled {
		return Result{Name: name, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.Jellyfin.URL) == "" {
		return Result{Name: name, Detail: "Missing URL"}
	}
	if strings.TrimSpace(cfg.Jellyfin.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	check := CheckJellyfin(context.Background(), cfg.Jellyfin.URL, cfg.Jellyfin.APIKey)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}
