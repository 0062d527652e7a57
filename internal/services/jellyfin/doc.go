// Package jellyfin is a thin client for the parts of the Jellyfin HTTP API
// that library visibility needs: listing media folders, resolving the
// configured account, and rewriting that account's enabled-folder policy.
//
// Policy documents are round-tripped as raw maps so a write never drops
// fields this client does not model. Errors are classified into the shared
// service taxonomy so callers can decide what is retryable.
package jellyfin
