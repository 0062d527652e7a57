package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cinetag/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.MovieDir = filepath.Join(base, "movies")
	cfgVal.Paths.TagDir = filepath.Join(base, "tags")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = ""
	cfgVal.Reconcile.Watch = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := os.MkdirAll(builder.cfg.Paths.MovieDir, 0o755); err != nil {
		t.Fatalf("mkdir movie dir: %v", err)
	}

	return builder.cfg
}

// WithAPIBind sets the HTTP API bind address on the test config.
func WithAPIBind(bind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIBind = bind
	}
}

// WithWatch enables the movie directory watcher on the test config.
func WithWatch() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reconcile.Watch = true
	}
}

// WithJellyfin enables library visibility sync against the given server.
func WithJellyfin(url, apiKey, user string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Jellyfin.Enabled = true
		b.cfg.Jellyfin.URL = url
		b.cfg.Jellyfin.APIKey = apiKey
		b.cfg.Jellyfin.User = user
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
