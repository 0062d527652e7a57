package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Tag describes one tag in a transport-friendly format.
type Tag struct {
	Name       string `json:"name"`
	MovieCount int    `json:"movieCount"`
	Visible    bool   `json:"visible"`
}

// Movie describes one inventory entry along with the tags assigned to it.
type Movie struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Path string   `json:"path"`
	Tags []string `json:"tags"`
}

// LinkChange is one symlink created or removed by a pass.
type LinkChange struct {
	Tag    string `json:"tag"`
	Leaf   string `json:"leaf"`
	Target string `json:"target,omitempty"`
}

// Failure describes one entry a pass could not apply.
type Failure struct {
	Tag   string `json:"tag,omitempty"`
	Leaf  string `json:"leaf,omitempty"`
	Path  string `json:"path,omitempty"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

// ReconcileReport summarizes one filesystem pass.
type ReconcileReport struct {
	Created     []LinkChange `json:"created"`
	Removed     []LinkChange `json:"removed"`
	CreatedDirs []string     `json:"createdDirs,omitempty"`
	RemovedDirs []string     `json:"removedDirs,omitempty"`
	Pruned      []string     `json:"pruned,omitempty"`
	Foreign     []string     `json:"foreign,omitempty"`
	Failures    []Failure    `json:"failures,omitempty"`
	Partial     bool         `json:"partial"`
	LiveTags    []string     `json:"liveTags"`
}

// VisibilityReport summarizes one grant synchronization pass.
type VisibilityReport struct {
	Granted  []string  `json:"granted"`
	Revoked  []string  `json:"revoked"`
	Missing  []string  `json:"missing,omitempty"`
	Failures []Failure `json:"failures,omitempty"`
	Aborted  bool      `json:"aborted"`
}

// CycleOutcome is the full report for one reconcile-and-sync cycle.
type CycleOutcome struct {
	RunID      string            `json:"runId,omitempty"`
	StartedAt  string            `json:"startedAt,omitempty"`
	FinishedAt string            `json:"finishedAt,omitempty"`
	Reconcile  *ReconcileReport  `json:"reconcile,omitempty"`
	Visibility *VisibilityReport `json:"visibility,omitempty"`
	Coalesced  bool              `json:"coalesced,omitempty"`
	Mutations  int               `json:"mutations"`
	Failures   int               `json:"failures"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	MovieDir     string        `json:"movieDir"`
	TagDir       string        `json:"tagDir"`
	StorePath    string        `json:"storePath"`
	LockFilePath string        `json:"lockFilePath"`
	Watching     bool          `json:"watching"`
	JellyfinSync bool          `json:"jellyfinSync"`
	LastOutcome  *CycleOutcome `json:"lastOutcome,omitempty"`
}

// TagListResponse wraps a collection of tags.
type TagListResponse struct {
	Tags []Tag `json:"tags"`
}

// MovieListResponse wraps a collection of movies.
type MovieListResponse struct {
	Movies []Movie `json:"movies"`
}
