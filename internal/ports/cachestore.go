package ports

import "context"

// CacheStore is the generic key-value persistence primitive: string key to
// opaque value bytes, whole-value overwrites only. Implementations MUST return
// types.ErrNotFound for a missing key and MUST NOT apply partial updates.
// Resilience policy (swallow-and-log on failure) lives in the callers, not in
// the store.
type CacheStore interface {
	GetItem(ctx context.Context, key string) ([]byte, error)

	SetItem(ctx context.Context, key string, value []byte) error

	RemoveItem(ctx context.Context, key string) error

	// ClearAll purges every entry under this store's namespace. Used in tests only.
	ClearAll(ctx context.Context) error
}
