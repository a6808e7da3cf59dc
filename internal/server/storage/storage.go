// Package storage wraps the object-storage collaborator's listing and
// existence capabilities behind a small interface. The data path itself
// never flows through this process; clients talk to the backend directly
// with signed URLs.
package storage

import "context"

// Lister enumerates and probes objects in the storage backend.
type Lister interface {
	// List returns the keys of all objects under the given prefixes, in
	// backend listing order. Prefix overlap may produce duplicates; callers
	// dedupe.
	List(ctx context.Context, prefixes []string) ([]string, error)

	// Exists reports whether an object with the given key currently exists.
	Exists(ctx context.Context, key string) (bool, error)
}
