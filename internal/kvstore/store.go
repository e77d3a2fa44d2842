// Package kvstore provides the client-scoped key-value storage used by the
// local persistence backend. Values are opaque strings; callers encode them.
package kvstore

import "context"

// Store is a flat string key-value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Removing a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}
