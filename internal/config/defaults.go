package config

const (
	defaultStateDir               = "~/.local/share/cinetag"
	defaultLogDir                 = "~/.local/share/cinetag/logs"
	defaultAPIBind                = "127.0.0.1:7787"
	defaultJellyfinRequestTimeout = 15
	defaultJellyfinMaxRetries     = 3
	defaultJellyfinRetryBackoffMS = 500
	defaultVisibilityMode         = VisibilityMirror
	defaultReconcileWorkers       = 4
	defaultDebounceSeconds        = 2
	defaultRescanIntervalMinutes  = 15
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Jellyfin: Jellyfin{
			RequestTimeout: defaultJellyfinRequestTimeout,
			MaxRetries:     defaultJellyfinMaxRetries,
			RetryBackoffMS: defaultJellyfinRetryBackoffMS,
		},
		Visibility: Visibility{
			Mode: defaultVisibilityMode,
		},
		Reconcile: Reconcile{
			Workers:               defaultReconcileWorkers,
			Watch:                 true,
			DebounceSeconds:       defaultDebounceSeconds,
			RescanIntervalMinutes: defaultRescanIntervalMinutes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
