package storage

import "context"

// ObjectStore provides byte-level access to a flat, key-addressed object store
// such as an S3 bucket. Keys use "/" as a separator.
// Implementations must be thread-safe and support concurrent access.
type ObjectStore interface {
	// Get returns the full contents of the object stored under key.
	// Returns ErrNotFound if the object does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// List returns the keys that start with prefix, in lexical order.
	// When delimiter is non-empty, keys containing the delimiter after the
	// prefix are rolled up into a single common prefix ending with it.
	List(ctx context.Context, prefix, delimiter string) ([]string, error)

	// Close releases resources held by the store.
	Close() error
}
