package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pickfast/internal/domain"
)

type GroupRepo struct{ db *gorm.DB }

var _ domain.GroupRepository = (*GroupRepo)(nil)

func NewGroupRepo(db *gorm.DB) *GroupRepo { return &GroupRepo{db: db} }

func (r *GroupRepo) Create(ctx context.Context, g *domain.Group) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *GroupRepo) FindByCode(ctx context.Context, code string) (*domain.Group, error) {
	return r.first(r.db.WithContext(ctx), "code = ?", code)
}

func (r *GroupRepo) FindByCodeForUpdate(ctx context.Context, code string) (*domain.Group, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), "code = ?", code)
}

func (r *GroupRepo) FindByAdmin(ctx context.Context, userID string) (*domain.Group, error) {
	return r.first(r.db.WithContext(ctx), "admin_id = ?", userID)
}

func (r *GroupRepo) first(q *gorm.DB, cond string, arg any) (*domain.Group, error) {
	var g domain.Group
	err := q.First(&g, cond, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepo) Exists(ctx context.Context, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Group{}).Where("code = ?", code).Count(&n).Error
	return n > 0, err
}

func (r *GroupRepo) List(ctx context.Context, offset, limit int) ([]domain.Group, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Group{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var groups []domain.Group
	if err := tx.Order("created_at desc").Offset(offset).Limit(limit).Find(&groups).Error; err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

func (r *GroupRepo) SetAdmin(ctx context.Context, code string, adminID *string) error {
	var v any
	if adminID != nil {
		v = *adminID
	}
	return r.update(ctx, code, "admin_id", v)
}

func (r *GroupRepo) SetPrivate(ctx context.Context, code string, private bool) error {
	return r.update(ctx, code, "private", private)
}

func (r *GroupRepo) update(ctx context.Context, code, column string, v any) error {
	res := r.db.WithContext(ctx).Model(&domain.Group{}).Where("code = ?", code).Update(column, v)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func (r *GroupRepo) Delete(ctx context.Context, code string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("group_code = ?", code).Delete(&domain.Product{}).Error; err != nil {
		return err
	}
	if err := db.Where("group_code = ?", code).Delete(&domain.Store{}).Error; err != nil {
		return err
	}
	if err := db.Where("group_code = ?", code).Delete(&domain.BlacklistEntry{}).Error; err != nil {
		return err
	}
	err := db.Model(&domain.User{}).Where("group_code = ?", code).
		Updates(map[string]any{"group_code": nil, "joined_group_at": nil}).Error
	if err != nil {
		return err
	}
	res := db.Where("code = ?", code).Delete(&domain.Group{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func (r *GroupRepo) AddToBlacklist(ctx context.Context, code, userID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.BlacklistEntry{GroupCode: code, UserID: userID}).Error
}

func (r *GroupRepo) RemoveFromBlacklist(ctx context.Context, code, userID string) error {
	return r.db.WithContext(ctx).
		Where("group_code = ? AND user_id = ?", code, userID).
		Delete(&domain.BlacklistEntry{}).Error
}

func (r *GroupRepo) IsBlacklisted(ctx context.Context, code, userID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.BlacklistEntry{}).
		Where("group_code = ? AND user_id = ?", code, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *GroupRepo) Blacklist(ctx context.Context, code string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.BlacklistEntry{}).
		Where("group_code = ?", code).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}
