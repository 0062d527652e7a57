package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeJellyfin()
	c.normalizeVisibility()
	c.normalizeReconcile()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.MovieDir, err = expandPath(c.Paths.MovieDir); err != nil {
		return fmt.Errorf("paths.movie_dir: %w", err)
	}
	if c.Paths.TagDir, err = expandPath(c.Paths.TagDir); err != nil {
		return fmt.Errorf("paths.tag_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeJellyfin() {
	c.Jellyfin.URL = strings.TrimRight(strings.TrimSpace(c.Jellyfin.URL), "/")
	c.Jellyfin.APIKey = strings.TrimSpace(c.Jellyfin.APIKey)
	c.Jellyfin.User = strings.TrimSpace(c.Jellyfin.User)
	if c.Jellyfin.RequestTimeout <= 0 {
		c.Jellyfin.RequestTimeout = defaultJellyfinRequestTimeout
	}
	if c.Jellyfin.MaxRetries < 0 {
		c.Jellyfin.MaxRetries = 0
	}
	if c.Jellyfin.RetryBackoffMS <= 0 {
		c.Jellyfin.RetryBackoffMS = defaultJellyfinRetryBackoffMS
	}
	if c.Jellyfin.GrantLimit < 0 {
		c.Jellyfin.GrantLimit = 0
	}
}

func (c *Config) normalizeVisibility() {
	c.Visibility.Mode = strings.ToLower(strings.TrimSpace(c.Visibility.Mode))
	if c.Visibility.Mode == "" {
		c.Visibility.Mode = defaultVisibilityMode
	}
	c.Visibility.HiddenTags = trimStrings(c.Visibility.HiddenTags)
	c.Visibility.VisibleTags = trimStrings(c.Visibility.VisibleTags)
}

func (c *Config) normalizeReconcile() {
	if c.Reconcile.Workers <= 0 {
		c.Reconcile.Workers = defaultReconcileWorkers
	}
	if c.Reconcile.DebounceSeconds <= 0 {
		c.Reconcile.DebounceSeconds = defaultDebounceSeconds
	}
	if c.Reconcile.RescanIntervalMinutes < 0 {
		c.Reconcile.RescanIntervalMinutes = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
