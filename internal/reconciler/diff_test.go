package reconciler

import (
	"testing"
)

func desiredFixture() Desired {
	return Desired{
		Links: map[LinkKey]string{
			{Tag: "action", Leaf: "Alien.mkv"}: "/movies/Alien.mkv",
			{Tag: "action", Leaf: "Heat.mkv"}:  "/movies/Heat.mkv",
			{Tag: "noir", Leaf: "Heat.mkv"}:    "/movies/Heat.mkv",
		},
		Tags: map[string]struct{}{"action": {}, "noir": {}},
	}
}

func TestDiffCreatesEverythingFromScratch(t *testing.T) {
	plan := Diff(desiredFixture(), Observed{
		Links: map[LinkKey]string{},
		Tags:  map[string]struct{}{},
	})

	if len(plan.CreateDirs) != 2 || plan.CreateDirs[0] != "action" || plan.CreateDirs[1] != "noir" {
		t.Fatalf("CreateDirs = %v", plan.CreateDirs)
	}
	if len(plan.Ops) != 3 {
		t.Fatalf("expected 3 creates, got %+v", plan.Ops)
	}
	for _, op := range plan.Ops {
		if op.Kind != opCreate {
			t.Fatalf("expected create, got %+v", op)
		}
	}
	if len(plan.RemoveDirs) != 0 {
		t.Fatalf("RemoveDirs = %v", plan.RemoveDirs)
	}
}

func TestDiffIsEmptyWhenConverged(t *testing.T) {
	desired := desiredFixture()
	observed := Observed{
		Links: map[LinkKey]string{},
		Tags:  map[string]struct{}{"action": {}, "noir": {}},
	}
	for key, target := range desired.Links {
		observed.Links[key] = target
	}

	plan := Diff(desired, observed)
	if !plan.Empty() {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestDiffReplacesStaleTarget(t *testing.T) {
	desired := Desired{
		Links: map[LinkKey]string{{Tag: "action", Leaf: "Alien.mkv"}: "/movies/new/Alien.mkv"},
		Tags:  map[string]struct{}{"action": {}},
	}
	observed := Observed{
		Links: map[LinkKey]string{{Tag: "action", Leaf: "Alien.mkv"}: "/movies/old/Alien.mkv"},
		Tags:  map[string]struct{}{"action": {}},
	}

	plan := Diff(desired, observed)
	if len(plan.Ops) != 1 || plan.Ops[0].Kind != opReplace {
		t.Fatalf("expected single replace, got %+v", plan.Ops)
	}
	if plan.Ops[0].Target != "/movies/new/Alien.mkv" {
		t.Fatalf("replace target = %q", plan.Ops[0].Target)
	}
}

func TestDiffRemovesOrphansAndEmptyTagDirs(t *testing.T) {
	desired := Desired{Links: map[LinkKey]string{}, Tags: map[string]struct{}{}}
	observed := Observed{
		Links: map[LinkKey]string{{Tag: "stale", Leaf: "Gone.mkv"}: "/movies/Gone.mkv"},
		Tags:  map[string]struct{}{"stale": {}},
	}

	plan := Diff(desired, observed)
	if len(plan.Ops) != 1 || plan.Ops[0].Kind != opRemove {
		t.Fatalf("expected single remove, got %+v", plan.Ops)
	}
	if len(plan.RemoveDirs) != 1 || plan.RemoveDirs[0] != "stale" {
		t.Fatalf("RemoveDirs = %v", plan.RemoveDirs)
	}
}

func TestDiffAbortsSubtreeWithForeignContent(t *testing.T) {
	desired := Desired{Links: map[LinkKey]string{}, Tags: map[string]struct{}{}}
	observed := Observed{
		Links:   map[LinkKey]string{{Tag: "stale", Leaf: "Gone.mkv"}: "/movies/Gone.mkv"},
		Tags:    map[string]struct{}{"stale": {}},
		Foreign: []string{"/tags/stale/real-data.txt"},
	}

	plan := Diff(desired, observed)
	if len(plan.RemoveDirs) != 0 {
		t.Fatalf("foreign-containing dir must be kept: %v", plan.RemoveDirs)
	}
	if len(plan.Ops) != 0 {
		t.Fatalf("aborted subtree must keep its links: %+v", plan.Ops)
	}
	if len(plan.Foreign) != 1 {
		t.Fatalf("Foreign = %v", plan.Foreign)
	}
}

func TestDiffKeepsForeignReportForLiveTag(t *testing.T) {
	desired := Desired{
		Links: map[LinkKey]string{{Tag: "action", Leaf: "Alien.mkv"}: "/movies/Alien.mkv"},
		Tags:  map[string]struct{}{"action": {}},
	}
	observed := Observed{
		Links:   map[LinkKey]string{{Tag: "action", Leaf: "Old.mkv"}: "/movies/Old.mkv"},
		Tags:    map[string]struct{}{"action": {}},
		Foreign: []string{"/tags/action/notes.txt"},
	}

	plan := Diff(desired, observed)
	// The live tag still gets reconciled: stale link removed, new one added.
	if len(plan.Ops) != 2 {
		t.Fatalf("expected remove+create, got %+v", plan.Ops)
	}
	if len(plan.Foreign) != 1 {
		t.Fatalf("foreign content must still be reported: %v", plan.Foreign)
	}
}
