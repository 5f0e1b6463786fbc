package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

var jsonNull = []byte("null")

// GetOrLoadJSON caches the JSON encoding of what load returns. A nil value is
// cached too, so lookups of absent records also skip the source until the key
// is deleted or expires.
func GetOrLoadJSON[T any](c *Cache, ctx context.Context, key string, ttl time.Duration, load func(context.Context) (*T, error)) (*T, error) {
	raw, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return jsonNull, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	if bytes.Equal(raw, jsonNull) {
		return nil, nil
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}
