package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pickfast/internal/domain"
	"pickfast/internal/repo"
)

type GroupService struct {
	unit   *repo.Unit
	ledger *MembershipLedger
	codes  *CodeGenerator
	views  *groupViews
	log    *zap.Logger
	now    func() time.Time
}

func NewGroupService(d Deps, ledger *MembershipLedger, codes *CodeGenerator) *GroupService {
	d = d.withDefaults()
	if codes == nil {
		codes = &CodeGenerator{}
	}
	return &GroupService{
		unit:   d.Unit,
		ledger: ledger,
		codes:  codes,
		views:  newGroupViews(d),
		log:    d.Log,
		now:    d.Now,
	}
}

// CreateGroup creates a group administered by creatorID, who leaves their
// current group first. Every group starts with its admin as sole member.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID string, private bool) (*domain.Group, error) {
	if creatorID == "" {
		return nil, fmt.Errorf("%w: group admin required", domain.ErrInvalidInput)
	}
	var (
		g       *domain.Group
		touched []string
	)
	err := s.unit.Transaction(ctx, func(tx *repo.Unit) error {
		creator, err := tx.Users().FindByIDForUpdate(ctx, creatorID)
		if err != nil {
			return err
		}
		if creator == nil {
			return domain.ErrUserNotFound
		}
		if touched, err = s.ledger.assign(ctx, tx, creator, nil, false); err != nil {
			return err
		}

		code, err := s.codes.GenerateUniqueCode(ctx, tx.Groups().Exists)
		if err != nil {
			return err
		}
		g = &domain.Group{Code: code, Private: private, AdminID: &creator.ID}
		if err := tx.Groups().Create(ctx, g); err != nil {
			return fmt.Errorf("create group %s: %w", code, err)
		}
		if err := tx.Users().SetGroup(ctx, creator.ID, &code, s.now()); err != nil {
			return fmt.Errorf("join creator to %s: %w", code, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	groupsCreated.Inc()
	s.log.Info("group created", zap.String("group", g.Code), zap.String("admin", creatorID), zap.Bool("private", private))
	s.views.invalidate(ctx, append(touched, g.Code)...)
	return g, nil
}

// Get returns the group view. Only members and staff may read it.
func (s *GroupService) Get(ctx context.Context, actor domain.Actor, code string) (*domain.GroupView, error) {
	if !actor.IsStaff() {
		u, err := s.unit.Users().FindByID(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, domain.ErrUserNotFound
		}
		if !u.InGroup(code) {
			// Hide whether the code exists.
			g, err := s.unit.Groups().FindByCode(ctx, code)
			if err != nil {
				return nil, err
			}
			if g == nil {
				return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, code)
			}
			return nil, domain.Denied(domain.DenyNotMember)
		}
	}
	v, err := s.views.get(ctx, code, func(ctx context.Context) (*domain.GroupView, error) {
		return s.loadView(ctx, code)
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, code)
	}
	return v, nil
}

func (s *GroupService) loadView(ctx context.Context, code string) (*domain.GroupView, error) {
	g, err := s.unit.Groups().FindByCode(ctx, code)
	if err != nil || g == nil {
		return nil, err
	}
	users, err := s.unit.Users().Members(ctx, code)
	if err != nil {
		return nil, err
	}
	v := &domain.GroupView{Group: *g, Members: make([]domain.Member, 0, len(users))}
	for _, u := range users {
		v.Members = append(v.Members, domain.Member{
			ID:       u.ID,
			Name:     u.Name,
			Admin:    g.IsAdmin(u.ID),
			JoinedAt: u.JoinedGroupAt,
		})
	}
	if v.Blacklist, err = s.unit.Groups().Blacklist(ctx, code); err != nil {
		return nil, err
	}
	if v.Blacklist == nil {
		v.Blacklist = []string{}
	}
	if v.StoreCount, err = s.unit.Stores().CountByGroup(ctx, code); err != nil {
		return nil, err
	}
	if v.ProductCount, err = s.unit.Products().CountByGroup(ctx, code); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *GroupService) List(ctx context.Context, offset, limit int) ([]domain.Group, int64, error) {
	return s.unit.Groups().List(ctx, offset, limit)
}

func (s *GroupService) SetPrivate(ctx context.Context, actor domain.Actor, code string, private bool) (*domain.Group, error) {
	var g *domain.Group
	err := s.unit.Transaction(ctx, func(tx *repo.Unit) error {
		var err error
		if g, err = s.ledger.adminGroup(ctx, tx, actor, code); err != nil {
			return err
		}
		if err := tx.Groups().SetPrivate(ctx, code, private); err != nil {
			return err
		}
		g.Private = private
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.views.invalidate(ctx, code)
	return g, nil
}

// TransferAdmin hands the admin role to another member of the group.
func (s *GroupService) TransferAdmin(ctx context.Context, actor domain.Actor, code, newAdminID string) (*domain.Group, error) {
	var g *domain.Group
	err := s.unit.Transaction(ctx, func(tx *repo.Unit) error {
		var err error
		if g, err = s.ledger.adminGroup(ctx, tx, actor, code); err != nil {
			return err
		}
		u, err := tx.Users().FindByID(ctx, newAdminID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.ErrUserNotFound
		}
		if !u.InGroup(code) {
			return domain.Denied(domain.DenyNotMember)
		}
		if g.IsAdmin(newAdminID) {
			return nil
		}
		if err := tx.Groups().SetAdmin(ctx, code, &newAdminID); err != nil {
			return err
		}
		g.AdminID = &newAdminID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("admin transferred", zap.String("group", code), zap.String("admin", newAdminID), zap.String("by", actor.UserID))
	s.views.invalidate(ctx, code)
	return g, nil
}

// Delete dissolves the group with its stores, products and blacklist.
func (s *GroupService) Delete(ctx context.Context, actor domain.Actor, code string) error {
	err := s.unit.Transaction(ctx, func(tx *repo.Unit) error {
		if _, err := s.ledger.adminGroup(ctx, tx, actor, code); err != nil {
			return err
		}
		return tx.Groups().Delete(ctx, code)
	})
	if err != nil {
		return err
	}
	groupsDeleted.WithLabelValues("explicit").Inc()
	s.log.Info("group deleted", zap.String("group", code), zap.String("by", actor.UserID))
	s.views.invalidate(ctx, code)
	return nil
}
