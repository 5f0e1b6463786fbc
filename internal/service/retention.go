package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pickfast/internal/domain"
	"pickfast/internal/repo"
)

// Retention keeps a group's product list bounded by pruning the oldest
// purchases. Unpurchased products are never removed.
type Retention struct {
	unit      *repo.Unit
	log       *zap.Logger
	Threshold int
	Batch     int
}

func NewRetention(u *repo.Unit, l *zap.Logger) *Retention {
	if l == nil {
		l = zap.NewNop()
	}
	return &Retention{unit: u, log: l, Threshold: domain.RetentionThreshold, Batch: domain.RetentionBatch}
}

// Enforce runs after a product save. The count and the delete are separate
// statements, so concurrent inserts can overshoot the threshold for a while.
func (r *Retention) Enforce(ctx context.Context, code string) (int, error) {
	n, err := r.unit.Products().CountByGroup(ctx, code)
	if err != nil {
		return 0, fmt.Errorf("count products of %s: %w", code, err)
	}
	if n <= int64(r.Threshold) {
		return 0, nil
	}
	oldest, err := r.unit.Products().OldestPurchased(ctx, code, r.Batch)
	if err != nil {
		return 0, fmt.Errorf("select eviction batch of %s: %w", code, err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}
	ids := make([]uint, len(oldest))
	for i, p := range oldest {
		ids[i] = p.ID
	}
	deleted, err := r.unit.Products().DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("evict products of %s: %w", code, err)
	}
	productsEvicted.Add(float64(deleted))
	r.log.Info("products evicted",
		zap.String("group", code),
		zap.Int64("count", n),
		zap.Int64("evicted", deleted),
	)
	return int(deleted), nil
}
