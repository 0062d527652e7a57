// Package config loads, normalizes, and validates cinetag configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. Validation rejects layouts the
// reconciler cannot operate on safely, most importantly a tag root nested
// inside the movie root or the other way around.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths and clear validation errors.
package config
