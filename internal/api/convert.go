package api

import (
	"sort"

	"cinetag/internal/engine"
	"cinetag/internal/inventory"
	"cinetag/internal/reconciler"
	"cinetag/internal/tagstore"
	"cinetag/internal/visibility"
)

// FromReconcileResult converts a filesystem pass result to its API shape.
func FromReconcileResult(result *reconciler.Result) *ReconcileReport {
	if result == nil {
		return nil
	}
	report := &ReconcileReport{
		CreatedDirs: result.CreatedDirs,
		RemovedDirs: result.RemovedDirs,
		Foreign:     result.Foreign,
		Partial:     result.Partial,
		LiveTags:    result.LiveTags,
	}
	report.Created = fromLinks(result.Created)
	report.Removed = fromLinks(result.Removed)
	for _, pruned := range result.Pruned {
		report.Pruned = append(report.Pruned, pruned.MoviePath)
	}
	for _, failure := range result.Failures {
		report.Failures = append(report.Failures, Failure{
			Tag:   failure.Tag,
			Leaf:  failure.Leaf,
			Path:  failure.Path,
			Op:    failure.Op,
			Error: errorText(failure.Err),
		})
	}
	return report
}

// FromVisibilityResult converts a grant pass result to its API shape.
func FromVisibilityResult(result *visibility.Result) *VisibilityReport {
	if result == nil {
		return nil
	}
	report := &VisibilityReport{
		Granted: result.Granted,
		Revoked: result.Revoked,
		Missing: result.Missing,
		Aborted: result.Aborted,
	}
	for _, failure := range result.Failures {
		report.Failures = append(report.Failures, Failure{
			Tag:   failure.Library,
			Path:  failure.LibraryID,
			Op:    failure.Action,
			Error: errorText(failure.Err),
		})
	}
	return report
}

// FromOutcome converts a full cycle outcome to its API shape.
func FromOutcome(outcome *engine.Outcome) *CycleOutcome {
	if outcome == nil {
		return nil
	}
	dto := &CycleOutcome{
		RunID:      outcome.RunID,
		Reconcile:  FromReconcileResult(outcome.Reconcile),
		Visibility: FromVisibilityResult(outcome.Visibility),
		Coalesced:  outcome.Coalesced,
		Mutations:  outcome.Mutations(),
		Failures:   outcome.FailureCount(),
	}
	if !outcome.StartedAt.IsZero() {
		dto.StartedAt = outcome.StartedAt.UTC().Format(dateTimeFormat)
	}
	if !outcome.FinishedAt.IsZero() {
		dto.FinishedAt = outcome.FinishedAt.UTC().Format(dateTimeFormat)
	}
	if outcome.VisibilityErr != nil {
		if dto.Visibility == nil {
			dto.Visibility = &VisibilityReport{Aborted: true}
		}
		dto.Visibility.Failures = append(dto.Visibility.Failures, Failure{
			Op:    "sync",
			Error: errorText(outcome.VisibilityErr),
		})
	}
	return dto
}

// FromAssignments groups assignments into per-tag summaries. Visibility is
// the caller's policy decision and is applied per tag name.
func FromAssignments(assignments []tagstore.Assignment, tags []string, visible func(tag string) bool) []Tag {
	counts := make(map[string]int, len(tags))
	for _, tag := range tags {
		counts[tag] = 0
	}
	for _, assignment := range assignments {
		counts[assignment.Tag]++
	}
	out := make([]Tag, 0, len(counts))
	for name, count := range counts {
		dto := Tag{Name: name, MovieCount: count}
		if visible != nil {
			dto.Visible = visible(name)
		}
		out = append(out, dto)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FromInventory converts inventory entries to movie DTOs, attaching the tags
// assigned to each path.
func FromInventory(entries []inventory.Entry, tagsByPath map[string][]string) []Movie {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Movie, 0, len(entries))
	for _, entry := range entries {
		tags := tagsByPath[entry.Path]
		if tags == nil {
			tags = []string{}
		}
		out = append(out, Movie{
			ID:   tagstore.MovieID(entry.Path),
			Name: entry.Name,
			Path: entry.Path,
			Tags: tags,
		})
	}
	return out
}

func fromLinks(links []reconciler.Link) []LinkChange {
	if len(links) == 0 {
		return []LinkChange{}
	}
	out := make([]LinkChange, 0, len(links))
	for _, link := range links {
		out = append(out, LinkChange{Tag: link.Tag, Leaf: link.Leaf, Target: link.Target})
	}
	return out
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
