package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pickfast/internal/domain"
	"pickfast/internal/repo"
)

// MembershipLedger owns every change of a user's group. Departures of a
// group's admin go through Succession inside the same transaction.
type MembershipLedger struct {
	unit       *repo.Unit
	succession *Succession
	views      *groupViews
	log        *zap.Logger
	now        func() time.Time
}

func NewMembershipLedger(d Deps) *MembershipLedger {
	d = d.withDefaults()
	return &MembershipLedger{
		unit:       d.Unit,
		succession: NewSuccession(d.Log),
		views:      newGroupViews(d),
		log:        d.Log,
		now:        d.Now,
	}
}

// AssignUserToGroup moves userID into target, or out of any group when target
// is nil. Private groups and blacklisted users are rejected before anything
// is written.
func (l *MembershipLedger) AssignUserToGroup(ctx context.Context, userID string, target *string) (*domain.User, error) {
	var touched []string
	err := l.unit.Transaction(ctx, func(tx *repo.Unit) error {
		u, err := tx.Users().FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.ErrUserNotFound
		}
		touched, err = l.assign(ctx, tx, u, target, true)
		return err
	})
	if err != nil {
		l.rejected(err, userID, target)
		return nil, err
	}
	l.views.invalidate(ctx, touched...)
	return l.unit.Users().FindByID(ctx, userID)
}

// Leave removes userID from its current group.
func (l *MembershipLedger) Leave(ctx context.Context, userID string) (*domain.User, error) {
	return l.AssignUserToGroup(ctx, userID, nil)
}

// RemoveMember lets the group admin (or staff) remove a member.
func (l *MembershipLedger) RemoveMember(ctx context.Context, actor domain.Actor, code, userID string) error {
	var touched []string
	err := l.unit.Transaction(ctx, func(tx *repo.Unit) error {
		if _, err := l.adminGroup(ctx, tx, actor, code); err != nil {
			return err
		}
		u, err := tx.Users().FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.ErrUserNotFound
		}
		if !u.InGroup(code) {
			return domain.Denied(domain.DenyNotMember)
		}
		touched, err = l.assign(ctx, tx, u, nil, false)
		return err
	})
	if err != nil {
		return err
	}
	l.log.Info("member removed", zap.String("group", code), zap.String("user", userID), zap.String("by", actor.UserID))
	l.views.invalidate(ctx, touched...)
	return nil
}

// Blacklist bars userID from code. A current member is removed in the same
// transaction, handing over the admin role if needed.
func (l *MembershipLedger) Blacklist(ctx context.Context, actor domain.Actor, code, userID string) error {
	touched := []string{code}
	err := l.unit.Transaction(ctx, func(tx *repo.Unit) error {
		if _, err := l.adminGroup(ctx, tx, actor, code); err != nil {
			return err
		}
		u, err := tx.Users().FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.ErrUserNotFound
		}
		if err := tx.Groups().AddToBlacklist(ctx, code, userID); err != nil {
			return fmt.Errorf("blacklist %s in %s: %w", userID, code, err)
		}
		if u.InGroup(code) {
			t, err := l.assign(ctx, tx, u, nil, false)
			if err != nil {
				return err
			}
			touched = append(touched, t...)
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.log.Info("user blacklisted", zap.String("group", code), zap.String("user", userID), zap.String("by", actor.UserID))
	l.views.invalidate(ctx, touched...)
	return nil
}

func (l *MembershipLedger) Unblacklist(ctx context.Context, actor domain.Actor, code, userID string) error {
	err := l.unit.Transaction(ctx, func(tx *repo.Unit) error {
		if _, err := l.adminGroup(ctx, tx, actor, code); err != nil {
			return err
		}
		return tx.Groups().RemoveFromBlacklist(ctx, code, userID)
	})
	if err != nil {
		return err
	}
	l.views.invalidate(ctx, code)
	return nil
}

// assign moves u to target within tx and returns the groups whose view
// changed. enforcePolicy=false skips the private/blacklist checks, for moves
// the group itself initiates (creation, removal).
func (l *MembershipLedger) assign(ctx context.Context, tx *repo.Unit, u *domain.User, target *string, enforcePolicy bool) ([]string, error) {
	if target != nil {
		g, err := tx.Groups().FindByCodeForUpdate(ctx, *target)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, *target)
		}
		if enforcePolicy {
			if g.Private {
				return nil, domain.Denied(domain.DenyPrivate)
			}
			banned, err := tx.Groups().IsBlacklisted(ctx, g.Code, u.ID)
			if err != nil {
				return nil, err
			}
			if banned {
				return nil, domain.Denied(domain.DenyBlacklisted)
			}
		}
		if u.InGroup(g.Code) {
			return nil, nil
		}
	} else if u.GroupCode == nil {
		return nil, nil
	}

	var touched []string
	if u.GroupCode != nil {
		prev := *u.GroupCode
		touched = append(touched, prev)
		if _, err := l.succession.ResolveDeparture(ctx, tx, prev, u.ID); err != nil {
			return nil, err
		}
	}
	if err := tx.Users().SetGroup(ctx, u.ID, target, l.now()); err != nil {
		return nil, fmt.Errorf("move user %s: %w", u.ID, err)
	}
	u.GroupCode = target
	if target != nil {
		touched = append(touched, *target)
	}
	return touched, nil
}

// adminGroup loads code for update and checks actor may administer it.
func (l *MembershipLedger) adminGroup(ctx context.Context, tx *repo.Unit, actor domain.Actor, code string) (*domain.Group, error) {
	g, err := tx.Groups().FindByCodeForUpdate(ctx, code)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, code)
	}
	if err := requireAdmin(actor, g); err != nil {
		return nil, err
	}
	return g, nil
}

func requireAdmin(actor domain.Actor, g *domain.Group) error {
	if actor.IsStaff() || g.IsAdmin(actor.UserID) {
		return nil
	}
	membershipDenied.WithLabelValues(string(domain.DenyNotAdmin)).Inc()
	return domain.Denied(domain.DenyNotAdmin)
}

func (l *MembershipLedger) rejected(err error, userID string, target *string) {
	reason, ok := domain.DeniedReason(err)
	if !ok {
		return
	}
	membershipDenied.WithLabelValues(string(reason)).Inc()
	code := ""
	if target != nil {
		code = *target
	}
	l.log.Info("membership change denied",
		zap.String("user", userID),
		zap.String("group", code),
		zap.String("reason", string(reason)),
	)
}
