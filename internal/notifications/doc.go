// Package notifications delivers reconciliation events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Callers depend only on the Service interface, so alternative
// transports slot in without touching engine or daemon code.
package notifications
