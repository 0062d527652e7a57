// Package visibility converges a media-server account's library grants onto
// the set of tags that currently carry content.
//
// Each pass re-reads the server's libraries and the account's grants, diffs
// them against the desired tag set, and applies the difference with bounded
// retries on transient failures. Revocations run before grants so a
// server-enforced grant ceiling never blocks an addition. The synchronizer
// never touches the filesystem or the tag store; it consumes only the tag
// names handed to it.
package visibility
