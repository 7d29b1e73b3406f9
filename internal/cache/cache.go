package cache

import "context"

// Cache is a byte-oriented cache in front of audio storage reads.
type Cache interface {
	Put(ctx context.Context, key string, value interface{}, ttlSeconds int) error
	Get(ctx context.Context, key string, out interface{}) error
	Del(ctx context.Context, key string) error
	GetDefaultTTL() int
	ShutDown(ctx context.Context)
}
