package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"pickfast/internal/domain"
	"pickfast/internal/repo"
)

const (
	maxStoreName    = 100
	maxProductTitle = 40
)

// memberGroup resolves the group the actor belongs to.
func memberGroup(ctx context.Context, u *repo.Unit, actor domain.Actor) (string, error) {
	usr, err := u.Users().FindByID(ctx, actor.UserID)
	if err != nil {
		return "", err
	}
	if usr == nil {
		return "", domain.ErrUserNotFound
	}
	if usr.GroupCode == nil {
		membershipDenied.WithLabelValues(string(domain.DenyNotMember)).Inc()
		return "", domain.Denied(domain.DenyNotMember)
	}
	return *usr.GroupCode, nil
}

func cleanText(s string, max int, field string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > max {
		return "", fmt.Errorf("%w: %s must be 1-%d characters", domain.ErrInvalidInput, field, max)
	}
	return s, nil
}

type StoreService struct {
	unit  *repo.Unit
	views *groupViews
	log   *zap.Logger
}

func NewStoreService(d Deps) *StoreService {
	d = d.withDefaults()
	return &StoreService{unit: d.Unit, views: newGroupViews(d), log: d.Log}
}

func (s *StoreService) Create(ctx context.Context, actor domain.Actor, name string) (*domain.Store, error) {
	name, err := cleanText(name, maxStoreName, "name")
	if err != nil {
		return nil, err
	}
	code, err := memberGroup(ctx, s.unit, actor)
	if err != nil {
		return nil, err
	}
	st := &domain.Store{Name: name, GroupCode: code}
	if err := s.unit.Stores().Create(ctx, st); err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	s.views.invalidate(ctx, code)
	return st, nil
}

func (s *StoreService) List(ctx context.Context, actor domain.Actor) ([]domain.Store, error) {
	code, err := memberGroup(ctx, s.unit, actor)
	if err != nil {
		return nil, err
	}
	return s.unit.Stores().ListByGroup(ctx, code)
}

func (s *StoreService) Rename(ctx context.Context, actor domain.Actor, id uint, name string) (*domain.Store, error) {
	name, err := cleanText(name, maxStoreName, "name")
	if err != nil {
		return nil, err
	}
	st, err := s.owned(ctx, s.unit, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.unit.Stores().Rename(ctx, id, name); err != nil {
		return nil, err
	}
	st.Name = name
	return st, nil
}

// Delete removes the store and every product listed under it.
func (s *StoreService) Delete(ctx context.Context, actor domain.Actor, id uint) error {
	var code string
	err := s.unit.Transaction(ctx, func(tx *repo.Unit) error {
		st, err := s.owned(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		code = st.GroupCode
		return tx.Stores().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("store deleted", zap.Uint("store", id), zap.String("group", code))
	s.views.invalidate(ctx, code)
	return nil
}

func (s *StoreService) owned(ctx context.Context, u *repo.Unit, actor domain.Actor, id uint) (*domain.Store, error) {
	code, err := memberGroup(ctx, u, actor)
	if err != nil {
		return nil, err
	}
	st, err := u.Stores().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil || st.GroupCode != code {
		return nil, domain.ErrStoreNotFound
	}
	return st, nil
}

type ProductService struct {
	unit      *repo.Unit
	retention *Retention
	views     *groupViews
	log       *zap.Logger
	now       func() time.Time
}

func NewProductService(d Deps, r *Retention) *ProductService {
	d = d.withDefaults()
	if r == nil {
		r = NewRetention(d.Unit, d.Log)
	}
	return &ProductService{unit: d.Unit, retention: r, views: newGroupViews(d), log: d.Log, now: d.Now}
}

type NewProduct struct {
	Title    string
	Priority string
	StoreID  *uint
}

func (s *ProductService) Create(ctx context.Context, actor domain.Actor, in NewProduct) (*domain.Product, error) {
	title, err := cleanText(in.Title, maxProductTitle, "title")
	if err != nil {
		return nil, err
	}
	prio, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	code, err := memberGroup(ctx, s.unit, actor)
	if err != nil {
		return nil, err
	}
	if in.StoreID != nil {
		st, err := s.unit.Stores().FindByID(ctx, *in.StoreID)
		if err != nil {
			return nil, err
		}
		if st == nil || st.GroupCode != code {
			return nil, domain.ErrStoreNotFound
		}
	}
	p := &domain.Product{
		Title:     title,
		Priority:  prio,
		StoreID:   in.StoreID,
		GroupCode: code,
		AddedByID: &actor.UserID,
	}
	if err := s.unit.Products().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.afterSave(ctx, code)
	return p, nil
}

func (s *ProductService) List(ctx context.Context, actor domain.Actor, offset, limit int) ([]domain.Product, int64, error) {
	code, err := memberGroup(ctx, s.unit, actor)
	if err != nil {
		return nil, 0, err
	}
	return s.unit.Products().ListByGroup(ctx, code, offset, limit)
}

// RecordPurchase stamps the product as bought now.
func (s *ProductService) RecordPurchase(ctx context.Context, actor domain.Actor, id uint) (*domain.Product, error) {
	at := s.now()
	return s.setPurchased(ctx, actor, id, &at)
}

func (s *ProductService) ClearPurchase(ctx context.Context, actor domain.Actor, id uint) (*domain.Product, error) {
	return s.setPurchased(ctx, actor, id, nil)
}

func (s *ProductService) setPurchased(ctx context.Context, actor domain.Actor, id uint, at *time.Time) (*domain.Product, error) {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.unit.Products().SetPurchasedAt(ctx, id, at); err != nil {
		return nil, err
	}
	p.PurchasedAt = at
	s.afterSave(ctx, p.GroupCode)
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, actor domain.Actor, id uint) error {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if _, err := s.unit.Products().DeleteByIDs(ctx, []uint{id}); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	s.views.invalidate(ctx, p.GroupCode)
	return nil
}

func (s *ProductService) owned(ctx context.Context, actor domain.Actor, id uint) (*domain.Product, error) {
	code, err := memberGroup(ctx, s.unit, actor)
	if err != nil {
		return nil, err
	}
	p, err := s.unit.Products().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.GroupCode != code {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

// afterSave applies retention. The save itself already succeeded, so a
// retention failure is only logged.
func (s *ProductService) afterSave(ctx context.Context, code string) {
	if _, err := s.retention.Enforce(ctx, code); err != nil {
		s.log.Warn("retention failed", zap.String("group", code), zap.Error(err))
	}
	s.views.invalidate(ctx, code)
}
