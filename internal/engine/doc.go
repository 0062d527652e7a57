// Package engine orchestrates full reconciliation cycles.
//
// A cycle runs the filesystem reconciler first and the visibility
// synchronizer second, so the configured account never sees a library whose
// directory does not yet have correct contents. Cycles for one engine are
// serialized; triggers arriving mid-cycle coalesce into a single follow-up
// run instead of racing the symlink tree.
package engine
