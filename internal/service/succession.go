package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pickfast/internal/domain"
	"pickfast/internal/repo"
)

type SuccessionOutcome int

const (
	// OutcomeUnchanged: the departing user was not the admin.
	OutcomeUnchanged SuccessionOutcome = iota
	OutcomePromoted
	OutcomeDissolved
)

func (o SuccessionOutcome) String() string {
	switch o {
	case OutcomePromoted:
		return "promoted"
	case OutcomeDissolved:
		return "dissolved"
	default:
		return "unchanged"
	}
}

type SuccessionResult struct {
	Outcome    SuccessionOutcome
	NewAdminID string
}

// Succession hands the admin role over when its holder departs. The longest
// standing remaining member (earliest joined, then lowest user ID) takes over;
// a group left without members is deleted.
type Succession struct {
	log *zap.Logger
}

func NewSuccession(l *zap.Logger) *Succession {
	if l == nil {
		l = zap.NewNop()
	}
	return &Succession{log: l}
}

// ResolveDeparture runs inside the transaction that records the departure of
// departingID from code, before the user's membership is rewritten.
func (s *Succession) ResolveDeparture(ctx context.Context, tx *repo.Unit, code, departingID string) (SuccessionResult, error) {
	g, err := tx.Groups().FindByCodeForUpdate(ctx, code)
	if err != nil {
		return SuccessionResult{}, fmt.Errorf("load group %s: %w", code, err)
	}
	domain.Invariant(g != nil, "user %s references missing group %s", departingID, code)
	if !g.IsAdmin(departingID) {
		return SuccessionResult{Outcome: OutcomeUnchanged}, nil
	}

	admin, err := tx.Users().FindByID(ctx, departingID)
	if err != nil {
		return SuccessionResult{}, fmt.Errorf("load admin %s: %w", departingID, err)
	}
	domain.Invariant(admin != nil && admin.InGroup(code), "admin %s of group %s is not a member", departingID, code)

	if err := tx.Groups().SetAdmin(ctx, code, nil); err != nil {
		return SuccessionResult{}, fmt.Errorf("clear admin of %s: %w", code, err)
	}

	next, err := tx.Users().EarliestMemberExcept(ctx, code, departingID)
	if err != nil {
		return SuccessionResult{}, fmt.Errorf("pick successor in %s: %w", code, err)
	}
	var res SuccessionResult
	if next == nil {
		if err := tx.Groups().Delete(ctx, code); err != nil {
			return SuccessionResult{}, fmt.Errorf("dissolve group %s: %w", code, err)
		}
		res = SuccessionResult{Outcome: OutcomeDissolved}
		groupsDeleted.WithLabelValues("last_member_left").Inc()
	} else {
		if err := tx.Groups().SetAdmin(ctx, code, &next.ID); err != nil {
			return SuccessionResult{}, fmt.Errorf("promote %s in %s: %w", next.ID, code, err)
		}
		res = SuccessionResult{Outcome: OutcomePromoted, NewAdminID: next.ID}
	}

	adminSuccessions.WithLabelValues(res.Outcome.String()).Inc()
	s.log.Info("admin departed",
		zap.String("group", code),
		zap.String("departed", departingID),
		zap.Stringer("outcome", res.Outcome),
		zap.String("new_admin", res.NewAdminID),
	)
	return res, nil
}
