package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateJellyfin(); err != nil {
		return err
	}
	if err := c.validateVisibility(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.MovieDir) == "" {
		return errors.New("paths.movie_dir must be set")
	}
	if strings.TrimSpace(c.Paths.TagDir) == "" {
		return errors.New("paths.tag_dir must be set")
	}
	if c.Paths.MovieDir == c.Paths.TagDir {
		return errors.New("paths.tag_dir must differ from paths.movie_dir")
	}
	// A tag root inside the movie root would make the inventory scan walk
	// its own symlinks; the reverse would let reconciliation delete movies.
	if isSubpath(c.Paths.MovieDir, c.Paths.TagDir) {
		return fmt.Errorf("paths.tag_dir %q must not be nested inside paths.movie_dir", c.Paths.TagDir)
	}
	if isSubpath(c.Paths.TagDir, c.Paths.MovieDir) {
		return fmt.Errorf("paths.movie_dir %q must not be nested inside paths.tag_dir", c.Paths.MovieDir)
	}
	return nil
}

func (c *Config) validateJellyfin() error {
	if !c.Jellyfin.Enabled {
		return nil
	}
	if c.Jellyfin.URL == "" {
		return errors.New("jellyfin.url must be set when jellyfin.enabled is true")
	}
	if c.Jellyfin.APIKey == "" {
		return errors.New("jellyfin.api_key must be set when jellyfin.enabled is true")
	}
	if c.Jellyfin.User == "" {
		return errors.New("jellyfin.user must be set when jellyfin.enabled is true")
	}
	return nil
}

func (c *Config) validateVisibility() error {
	switch c.Visibility.Mode {
	case VisibilityMirror, VisibilityOptIn:
	default:
		return fmt.Errorf("visibility.mode must be %q or %q, got %q", VisibilityMirror, VisibilityOptIn, c.Visibility.Mode)
	}
	if c.Visibility.Mode == VisibilityMirror && len(c.Visibility.VisibleTags) > 0 {
		return errors.New("visibility.visible_tags is only honored in opt-in mode; set visibility.mode = \"opt-in\"")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
}

func isSubpath(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
