package ipc

import "cinetag/internal/api"

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Tag mirrors the HTTP API tag DTO for internal IPC callers.
type Tag = api.Tag

// Movie mirrors the HTTP API movie DTO for internal IPC callers.
type Movie = api.Movie

// CycleOutcome mirrors the HTTP API cycle outcome DTO.
type CycleOutcome = api.CycleOutcome

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	MovieDir     string        `json:"movie_dir"`
	TagDir       string        `json:"tag_dir"`
	StorePath    string        `json:"store_path"`
	LockPath     string        `json:"lock_path"`
	Watching     bool          `json:"watching"`
	JellyfinSync bool          `json:"jellyfin_sync"`
	LastOutcome  *CycleOutcome `json:"last_outcome,omitempty"`
}

// ReconcileRequest runs one reconcile-and-sync cycle.
type ReconcileRequest struct{}

// ReconcileResponse reports the cycle outcome.
type ReconcileResponse struct {
	Outcome *CycleOutcome `json:"outcome"`
}

// TagListRequest fetches all tags.
type TagListRequest struct{}

// TagListResponse contains per-tag summaries.
type TagListResponse struct {
	Tags []Tag `json:"tags"`
}

// TagCreateRequest registers a new tag.
type TagCreateRequest struct {
	Name string `json:"name"`
}

// TagCreateResponse returns the canonical tag name.
type TagCreateResponse struct {
	Name string `json:"name"`
}

// TagDeleteRequest removes a tag and its assignments.
type TagDeleteRequest struct {
	Name string `json:"name"`
}

// TagDeleteResponse reports the follow-up cycle outcome.
type TagDeleteResponse struct {
	Outcome *CycleOutcome `json:"outcome"`
}

// MovieListRequest fetches the movie inventory.
type MovieListRequest struct{}

// MovieListResponse contains inventory entries with their tags.
type MovieListResponse struct {
	Movies []Movie `json:"movies"`
}

// AssignRequest adds one tag assignment. Movie accepts an id, name, or path.
type AssignRequest struct {
	Tag   string `json:"tag"`
	Movie string `json:"movie"`
}

// AssignResponse reports the follow-up cycle outcome.
type AssignResponse struct {
	Outcome *CycleOutcome `json:"outcome"`
}

// UnassignRequest removes one tag assignment.
type UnassignRequest struct {
	Tag   string `json:"tag"`
	Movie string `json:"movie"`
}

// UnassignResponse reports the follow-up cycle outcome.
type UnassignResponse struct {
	Outcome *CycleOutcome `json:"outcome"`
}

// ToggleRequest flips one tag assignment.
type ToggleRequest struct {
	Tag   string `json:"tag"`
	Movie string `json:"movie"`
}

// ToggleResponse reports the new assignment state and cycle outcome.
type ToggleResponse struct {
	Assigned bool          `json:"assigned"`
	Outcome  *CycleOutcome `json:"outcome"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
