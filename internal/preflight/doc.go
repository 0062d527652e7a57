// Package preflight provides readiness checks for external services
// and filesystem paths that cinetag depends on.
//
// These checks run in two contexts:
//   - The CLI "cinetag status" command uses individual check functions
//     (CheckJellyfin, CheckDirectoryAccess) to display service health.
//   - RunAll bundles every applicable check for one-shot validation.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
