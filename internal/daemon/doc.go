// Package daemon hosts the long-running reconciliation services: the movie
// root watcher, the periodic rescan, and the HTTP API. It enforces
// single-instance execution with a file lock and funnels every tag mutation
// through a reconcile-and-sync cycle so the symlink tree and server grants
// never drift from the assignment store for long.
package daemon
