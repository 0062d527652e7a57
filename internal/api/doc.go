// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal reconciliation models into
// transport-friendly DTOs that clients can render without coupling to
// internal types.
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers.
// Timestamps use RFC3339 with milliseconds. Errors are flattened to strings
// at the boundary.
package api
