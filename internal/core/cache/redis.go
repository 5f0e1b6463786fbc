package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	RDB *redis.Client
	sf  singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}))
}

func NewWithClient(rdb *redis.Client) *Cache { return &Cache{RDB: rdb} }

func (c *Cache) Ping(ctx context.Context) error { return c.RDB.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.RDB.Close() }

// genTTL bounds how long an idle key's generation counter is kept.
const genTTL = 24 * time.Hour

func genKey(key string) string { return key + ":gen" }

// GetOrLoad returns the cached bytes for key, or runs load once per key across
// concurrent callers and caches its result for ttl. Redis errors other than a
// miss fall through to load. A Delete issued while load runs discards its
// result instead of caching it.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	b, err := c.RDB.Get(ctx, key).Bytes()
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	v, err, _ := c.sf.Do(key, func() (any, error) {
		gen, genErr := c.generation(ctx, key)
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if genErr == nil {
			_ = c.setIfGeneration(ctx, key, gen, b, ttl)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) generation(ctx context.Context, key string) (int64, error) {
	n, err := c.RDB.Get(ctx, genKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// setIfGeneration writes key only while its generation is still gen.
func (c *Cache) setIfGeneration(ctx context.Context, key string, gen int64, b []byte, ttl time.Duration) error {
	gk := genKey(key)
	return c.RDB.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, ttl)
			return nil
		})
		return err
	}, gk)
}

var errStale = errors.New("cache: key invalidated during load")

// Delete drops keys and bumps their generation, so loads already running
// for them do not write back. Later readers go back to the source.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	for _, k := range keys {
		c.sf.Forget(k)
	}
	_, err := c.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Incr(ctx, genKey(k))
			p.Expire(ctx, genKey(k), genTTL)
		}
		p.Del(ctx, keys...)
		return nil
	})
	return err
}
