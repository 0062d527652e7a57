// Package services holds the error taxonomy and context plumbing shared by
// the reconciliation engine and the Jellyfin gateway.
//
// Errors are classified by wrapping them with sentinel markers (ErrAuth,
// ErrTransport, ErrNotFound, ...) so callers can decide between retrying,
// recording, and aborting without string matching. Retryable centralizes that
// decision for the visibility synchronizer's retry loop.
package services
