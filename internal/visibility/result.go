package visibility

import "sort"

// Grant actions.
const (
	ActionGrant  = "grant"
	ActionRevoke = "revoke"
)

type change struct {
	Action    string
	Library   string
	LibraryID string
}

func (c change) displayName() string {
	if c.Library != "" {
		return c.Library
	}
	return c.LibraryID
}

func sortChanges(changes []change) {
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].displayName() < changes[j].displayName()
	})
}

// Failure records one grant or revoke the pass could not apply.
type Failure struct {
	Library   string `json:"library,omitempty"`
	LibraryID string `json:"library_id"`
	Action    string `json:"action"`
	Err       error  `json:"-"`
}

// Result is the outcome of one visibility synchronization pass.
type Result struct {
	Granted []string `json:"granted"`
	Revoked []string `json:"revoked"`
	// Missing lists desired tags with no matching server library.
	Missing  []string  `json:"missing"`
	Failures []Failure `json:"failures"`
	// Aborted is set when an auth failure or cancellation stopped the pass
	// before every change was attempted.
	Aborted bool `json:"aborted"`
}

// Mutations counts the grant changes the pass applied.
func (r *Result) Mutations() int {
	return len(r.Granted) + len(r.Revoked)
}
