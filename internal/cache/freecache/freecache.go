package freecache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	fc "github.com/coocood/freecache"

	"github.com/qvox/qvox-server/internal/cache"
)

type FreeCache struct {
	cache *fc.Cache
	ttl   int // seconds
}

func NewFreeCache(sizeBytes, ttlSeconds int) cache.Cache {
	return &FreeCache{
		cache: fc.NewCache(sizeBytes),
		ttl:   ttlSeconds,
	}
}

func (c *FreeCache) Put(ctx context.Context, key string, value interface{}, ttlSeconds int) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if value == nil {
		return fmt.Errorf("value cannot be nil")
	}
	data, err := encode(value)
	if err != nil {
		return err
	}
	return c.cache.Set([]byte(key), data, ttlSeconds)
}

func (c *FreeCache) Get(ctx context.Context, key string, out interface{}) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	data, err := c.cache.Get([]byte(key))
	if err != nil {
		return err
	}
	return decode(data, out)
}

func (c *FreeCache) Del(ctx context.Context, key string) error {
	c.cache.Del([]byte(key))
	return nil
}

func (c *FreeCache) GetDefaultTTL() int {
	return c.ttl
}

func (c *FreeCache) ShutDown(ctx context.Context) {
	c.cache.Clear()
}

func encode(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, out interface{}) error {
	dec := gob.NewDecoder(bytes.NewBuffer(data))
	return dec.Decode(out)
}
