package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	MovieDir string `toml:"movie_dir"`
	TagDir   string `toml:"tag_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Jellyfin contains configuration for the media server integration.
type Jellyfin struct {
	Enabled        bool   `toml:"enabled"`
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	User           string `toml:"user"`
	RequestTimeout int    `toml:"request_timeout"`
	MaxRetries     int    `toml:"max_retries"`
	RetryBackoffMS int    `toml:"retry_backoff_ms"`
	GrantLimit     int    `toml:"grant_limit"`
}

// Visibility modes.
const (
	VisibilityMirror = "mirror"
	VisibilityOptIn  = "opt-in"
)

// Visibility controls which tags are exposed to the configured account.
type Visibility struct {
	// Mode is "mirror" (every tag with content is visible unless hidden)
	// or "opt-in" (only tags listed in visible_tags are exposed).
	Mode        string   `toml:"mode"`
	HiddenTags  []string `toml:"hidden_tags"`
	VisibleTags []string `toml:"visible_tags"`
}

// Reconcile contains tuning for filesystem reconciliation passes.
type Reconcile struct {
	Workers               int  `toml:"workers"`
	Watch                 bool `toml:"watch"`
	DebounceSeconds       int  `toml:"debounce_seconds"`
	RescanIntervalMinutes int  `toml:"rescan_interval_minutes"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cinetag.
//
// Configuration sections by subsystem:
//   - Paths: movie source, tag root, state directory, and API bind address
//   - Jellyfin: media server connection and retry policy
//   - Visibility: which tag libraries the configured account may see
//   - Reconcile: worker pool size, watcher, and rescan intervals
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Jellyfin      Jellyfin      `toml:"jellyfin"`
	Visibility    Visibility    `toml:"visibility"`
	Reconcile     Reconcile     `toml:"reconcile"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cinetag/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cinetag.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation. The
// tag root is created on a best-effort basis so the daemon can start while
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.TagDir) != "" {
		_ = os.MkdirAll(c.Paths.TagDir, 0o755)
	}
	return nil
}

// StorePath returns the location of the tag assignment database.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.StateDir, "tags.db")
}

// LockPath returns the location of the daemon instance lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "cinetagd.lock")
}

// SocketPath returns the location of the daemon IPC socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "cinetagd.sock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
