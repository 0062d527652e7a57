package reconciler

import (
	"path/filepath"
	"sort"
)

type opKind int

const (
	opCreate opKind = iota
	opRemove
	opReplace
)

func (k opKind) String() string {
	switch k {
	case opCreate:
		return "create"
	case opRemove:
		return "remove"
	case opReplace:
		return "replace"
	default:
		return "unknown"
	}
}

type linkOp struct {
	Kind   opKind
	Key    LinkKey
	Target string // desired target for create/replace
}

// Plan is the minimal set of filesystem mutations turning the observed state
// into the desired state. Plans are pure values so the diff can be tested
// without any filesystem.
type Plan struct {
	CreateDirs []string
	Ops        []linkOp
	RemoveDirs []string
	// Foreign lists paths under the tag root that are not managed symlinks.
	// They are reported, never touched, and any tag directory scheduled for
	// removal that contains one keeps its whole subtree.
	Foreign []string
}

// Empty reports whether applying the plan would perform no mutations.
func (p Plan) Empty() bool {
	return len(p.CreateDirs) == 0 && len(p.Ops) == 0 && len(p.RemoveDirs) == 0
}

// Diff computes the plan converting observed into desired. Target
// correctness wins over churn minimization: a link whose target differs from
// the desired one is replaced even though its slot already exists.
func Diff(desired Desired, observed Observed) Plan {
	var plan Plan
	plan.Foreign = append(plan.Foreign, observed.Foreign...)

	foreignTags := make(map[string]struct{})
	for _, path := range observed.Foreign {
		foreignTags[filepath.Base(filepath.Dir(path))] = struct{}{}
	}

	// A tag directory that should no longer exist keeps its entire subtree
	// when foreign content is present; deleting around real data risks
	// destroying files a misconfiguration placed there.
	abortedTags := make(map[string]struct{})
	for tag := range observed.Tags {
		if _, keep := desired.Tags[tag]; keep {
			continue
		}
		if _, foreign := foreignTags[tag]; foreign {
			abortedTags[tag] = struct{}{}
			continue
		}
		plan.RemoveDirs = append(plan.RemoveDirs, tag)
	}

	for tag := range desired.Tags {
		if _, ok := observed.Tags[tag]; !ok {
			plan.CreateDirs = append(plan.CreateDirs, tag)
		}
	}

	for key, target := range desired.Links {
		current, ok := observed.Links[key]
		switch {
		case !ok:
			plan.Ops = append(plan.Ops, linkOp{Kind: opCreate, Key: key, Target: target})
		case current != target:
			plan.Ops = append(plan.Ops, linkOp{Kind: opReplace, Key: key, Target: target})
		}
	}

	for key := range observed.Links {
		if _, ok := desired.Links[key]; ok {
			continue
		}
		if _, aborted := abortedTags[key.Tag]; aborted {
			continue
		}
		plan.Ops = append(plan.Ops, linkOp{Kind: opRemove, Key: key})
	}

	sort.Strings(plan.CreateDirs)
	sort.Strings(plan.RemoveDirs)
	sort.Strings(plan.Foreign)
	sort.Slice(plan.Ops, func(i, j int) bool {
		a, b := plan.Ops[i], plan.Ops[j]
		if a.Key.Tag != b.Key.Tag {
			return a.Key.Tag < b.Key.Tag
		}
		if a.Key.Leaf != b.Key.Leaf {
			return a.Key.Leaf < b.Key.Leaf
		}
		return a.Kind < b.Kind
	})
	return plan
}
