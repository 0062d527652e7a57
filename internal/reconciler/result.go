package reconciler

import (
	"sort"
	"sync"

	"cinetag/internal/tagstore"
)

// Link describes one symlink touched by a pass.
type Link struct {
	Tag    string `json:"tag"`
	Leaf   string `json:"leaf"`
	Target string `json:"target,omitempty"`
}

// Failure records one entry the pass could not bring into the desired state.
// Siblings keep processing; the full list is reported at the end.
type Failure struct {
	Tag  string `json:"tag,omitempty"`
	Leaf string `json:"leaf,omitempty"`
	Path string `json:"path"`
	Op   string `json:"op"`
	Err  error  `json:"-"`
}

// Result is the complete outcome of one filesystem reconciliation pass.
type Result struct {
	Created     []Link                `json:"created"`
	Removed     []Link                `json:"removed"`
	CreatedDirs []string              `json:"created_dirs"`
	RemovedDirs []string              `json:"removed_dirs"`
	Pruned      []tagstore.Assignment `json:"pruned"`
	Foreign     []string              `json:"foreign"`
	Failures    []Failure             `json:"failures"`
	// Partial marks a pass interrupted by cancellation; the next run
	// converges because the algorithm is idempotent.
	Partial bool `json:"partial"`
	// LiveTags lists the tags holding at least one valid link after the
	// pass. Only these are eligible for server-side visibility.
	LiveTags []string `json:"live_tags"`
}

// Mutations counts the filesystem operations the pass performed.
func (r *Result) Mutations() int {
	return len(r.Created) + len(r.Removed) + len(r.CreatedDirs) + len(r.RemovedDirs)
}

// FailedCreates returns per-tag counts of links that should exist but could
// not be created.
func (r *Result) FailedCreates() map[string]int {
	counts := make(map[string]int)
	for _, failure := range r.Failures {
		if failure.Op == "create" || failure.Op == "replace" {
			counts[failure.Tag]++
		}
	}
	return counts
}

// resultCollector accumulates outcome data from concurrent link workers.
type resultCollector struct {
	mu     sync.Mutex
	result Result
}

func (c *resultCollector) addCreated(link Link) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Created = append(c.result.Created, link)
}

func (c *resultCollector) addRemoved(link Link) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Removed = append(c.result.Removed, link)
}

func (c *resultCollector) addFailure(failure Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Failures = append(c.result.Failures, failure)
}

func (c *resultCollector) finish() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := c.result
	sortLinks(result.Created)
	sortLinks(result.Removed)
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Path < result.Failures[j].Path
	})
	return &result
}

func sortLinks(links []Link) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].Tag != links[j].Tag {
			return links[i].Tag < links[j].Tag
		}
		return links[i].Leaf < links[j].Leaf
	})
}
