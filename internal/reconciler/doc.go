// Package reconciler keeps the tag root's directory-of-symlinks tree equal
// to the assignment store projected onto the current movie inventory.
//
// Each pass is snapshot, diff, apply: both the desired and observed states
// are plain immutable values, the diff between them is a pure function, and
// only the apply phase touches the filesystem. Single-entry failures are
// collected and reported without aborting siblings, and re-running a pass is
// always safe because an unchanged model produces an empty plan.
package reconciler
