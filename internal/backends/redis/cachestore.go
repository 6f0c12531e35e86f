package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sitenav/internal/types"
)

const cacheKeyNameTemplate = "_sitenav_kv_%s"

// CacheStore implements ports.CacheStore on Redis. Values are whole-string
// overwrites; no transactional semantics are needed (single writer per logical
// cache, see the persistence design).
type CacheStore struct {
	cli *redis.Client
}

func NewCacheStore(cli *redis.Client) *CacheStore {
	return &CacheStore{cli: cli}
}

func (s *CacheStore) GetItem(ctx context.Context, key string) ([]byte, error) {
	out := s.cli.Get(ctx, cacheKey(key))
	if out.Err() != nil {
		if errors.Is(out.Err(), redis.Nil) {
			return nil, types.ErrNotFound
		}
		return nil, types.Err(types.ErrCacheAccess, out.Err(), "")
	}
	return []byte(out.Val()), nil
}

func (s *CacheStore) SetItem(ctx context.Context, key string, value []byte) error {
	out := s.cli.Set(ctx, cacheKey(key), string(value), 0)
	if out.Err() != nil {
		return types.Err(types.ErrCacheAccess, out.Err(), "")
	}
	return nil
}

func (s *CacheStore) RemoveItem(ctx context.Context, key string) error {
	out := s.cli.Del(ctx, cacheKey(key))
	if out.Err() != nil {
		return types.Err(types.ErrCacheAccess, out.Err(), "")
	}
	return nil
}

func (s *CacheStore) ClearAll(ctx context.Context) error {
	out := s.cli.Keys(ctx, cacheKey("*"))
	if out.Err() != nil {
		return out.Err()
	}
	keys := out.Val()
	if len(keys) == 0 {
		return nil
	}
	return s.cli.Del(ctx, keys...).Err()
}

func cacheKey(key string) string {
	return fmt.Sprintf(cacheKeyNameTemplate, key)
}
