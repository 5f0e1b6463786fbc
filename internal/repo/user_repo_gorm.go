package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"pickfast/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

func (r *UserRepo) FindByIDForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), "id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(r.db.WithContext(ctx), "email = ?", email)
}

func (r *UserRepo) first(q *gorm.DB, cond string, arg any) (*domain.User, error) {
	var u domain.User
	err := q.First(&u, cond, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context, query string, offset, limit int) ([]domain.User, int64, error) {
	var users []domain.User
	tx := r.db.WithContext(ctx).Model(&domain.User{})
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := tx.Offset(offset).Limit(limit).Order("created_at desc").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepo) SetRole(ctx context.Context, id, role string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) MarkVerified(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{"verified": true, "verification_code": nil})
}

func (r *UserRepo) SetVerificationCode(ctx context.Context, id, code string) error {
	return r.update(ctx, id, map[string]any{"verification_code": code})
}

func (r *UserRepo) TouchEmailSent(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]any{"last_email_sent": at})
}

func (r *UserRepo) update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) SetGroup(ctx context.Context, id string, code *string, joinedAt time.Time) error {
	updates := map[string]any{"group_code": nil, "joined_group_at": nil}
	if code != nil {
		updates["group_code"] = *code
		updates["joined_group_at"] = joinedAt
	}
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) Members(ctx context.Context, code string) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("group_code = ?", code).
		Order("joined_group_at ASC, id ASC").
		Find(&users).Error
	return users, err
}

func (r *UserRepo) CountMembers(ctx context.Context, code string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("group_code = ?", code).Count(&n).Error
	return n, err
}

func (r *UserRepo) EarliestMemberExcept(ctx context.Context, code, exceptID string) (*domain.User, error) {
	q := r.db.WithContext(ctx).
		Where("group_code = ? AND id <> ?", code, exceptID).
		Order("joined_group_at ASC, id ASC")
	var u domain.User
	err := q.First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
