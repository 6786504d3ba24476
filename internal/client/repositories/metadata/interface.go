// Package metadata is the client's local key/value store. It backs the
// credential cache that lets a returning device re-derive its proof secret
// without fetching the encrypted backup.
package metadata

import "context"

// Repository stores opaque values under string keys. Absent keys read as
// nil without error. Multi-key writes and deletes are atomic.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, pairs map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	// Scan returns every pair whose key starts with prefix. An empty prefix
	// matches all keys.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}
