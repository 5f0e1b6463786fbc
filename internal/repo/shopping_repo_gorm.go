package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"pickfast/internal/domain"
)

type StoreRepo struct{ db *gorm.DB }

var _ domain.StoreRepository = (*StoreRepo)(nil)

func NewStoreRepo(db *gorm.DB) *StoreRepo { return &StoreRepo{db: db} }

func (r *StoreRepo) Create(ctx context.Context, s *domain.Store) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *StoreRepo) FindByID(ctx context.Context, id uint) (*domain.Store, error) {
	var s domain.Store
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StoreRepo) ListByGroup(ctx context.Context, code string) ([]domain.Store, error) {
	var stores []domain.Store
	err := r.db.WithContext(ctx).Where("group_code = ?", code).Order("name, id").Find(&stores).Error
	return stores, err
}

func (r *StoreRepo) CountByGroup(ctx context.Context, code string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Store{}).Where("group_code = ?", code).Count(&n).Error
	return n, err
}

func (r *StoreRepo) Rename(ctx context.Context, id uint, name string) error {
	res := r.db.WithContext(ctx).Model(&domain.Store{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

func (r *StoreRepo) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("store_id = ?", id).Delete(&domain.Product{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&domain.Store{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

type ProductRepo struct{ db *gorm.DB }

var _ domain.ProductRepository = (*ProductRepo)(nil)

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProductRepo) FindByID(ctx context.Context, id uint) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByGroup orders the shopping list: still to buy first, then High to Low
// priority, newest first.
func (r *ProductRepo) ListByGroup(ctx context.Context, code string, offset, limit int) ([]domain.Product, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Product{}).Where("group_code = ?", code)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var products []domain.Product
	err := tx.
		Order("CASE WHEN purchased_at IS NULL THEN 0 ELSE 1 END").
		Order("CASE priority WHEN 'H' THEN 0 WHEN 'M' THEN 1 ELSE 2 END").
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepo) CountByGroup(ctx context.Context, code string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).Where("group_code = ?", code).Count(&n).Error
	return n, err
}

func (r *ProductRepo) SetPurchasedAt(ctx context.Context, id uint, at *time.Time) error {
	var v any
	if at != nil {
		v = *at
	}
	res := r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Update("purchased_at", v)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepo) OldestPurchased(ctx context.Context, code string, limit int) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).
		Where("group_code = ? AND purchased_at IS NOT NULL", code).
		Order("purchased_at ASC, id ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *ProductRepo) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.Product{})
	return res.RowsAffected, res.Error
}
