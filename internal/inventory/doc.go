// Package inventory takes read-only snapshots of the movie source directory.
//
// Every reconciliation pass starts from a fresh Scan so the reconciler always
// diffs against current ground truth instead of a cached view.
package inventory
