package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pickfast/internal/core/cache"
	"pickfast/internal/domain"
)

// groupViews fronts group view reads with the Redis cache when one is
// configured. A nil cache means every read hits the database.
type groupViews struct {
	c   *cache.Cache
	ttl time.Duration
	log *zap.Logger
}

func newGroupViews(d Deps) *groupViews {
	return &groupViews{c: d.Cache, ttl: d.CacheTTL, log: d.Log}
}

func groupKey(code string) string { return "pickfast:group:" + code }

func (v *groupViews) get(ctx context.Context, code string, load func(context.Context) (*domain.GroupView, error)) (*domain.GroupView, error) {
	if v.c == nil {
		return load(ctx)
	}
	return cache.GetOrLoadJSON(v.c, ctx, groupKey(code), v.ttl, load)
}

func (v *groupViews) invalidate(ctx context.Context, codes ...string) {
	if v.c == nil || len(codes) == 0 {
		return
	}
	keys := make([]string, 0, len(codes))
	for _, c := range codes {
		keys = append(keys, groupKey(c))
	}
	if err := v.c.Delete(ctx, keys...); err != nil {
		v.log.Warn("group cache invalidation failed", zap.Strings("groups", codes), zap.Error(err))
	}
}
