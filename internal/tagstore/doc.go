// Package tagstore persists the desired tag-to-movie mapping.
//
// The store is the single source of truth for what should exist under the
// tag root. It owns tag name validation and the stable leaf-name
// disambiguation applied when two differently-located movies share a base
// name. Mutations are synchronous; reads always observe prior writes.
package tagstore
