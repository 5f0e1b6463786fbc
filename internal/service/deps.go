package service

import (
	"time"

	"go.uber.org/zap"

	"pickfast/internal/core/cache"
	"pickfast/internal/core/mail"
	"pickfast/internal/repo"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Unit     *repo.Unit
	Log      *zap.Logger
	Now      func() time.Time // UTC wall clock when nil
	Cache    *cache.Cache     // optional group view cache
	CacheTTL time.Duration
	// Mail delivers user notifications; logged when nil.
	Mail mail.Mailer
	// FeedbackTo receives feedback mails.
	FeedbackTo []string
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = 30 * time.Second
	}
	if d.Mail == nil {
		d.Mail = mail.NewLog(d.Log)
	}
	return d
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(uid, role string) (string, error)
}

// Services is the full set used by the transport layer.
type Services struct {
	Ledger   *MembershipLedger
	Groups   *GroupService
	Stores   *StoreService
	Products *ProductService
	Users    *UserService
}

func New(d Deps, issuer TokenIssuer) *Services {
	d = d.withDefaults()
	ledger := NewMembershipLedger(d)
	return &Services{
		Ledger:   ledger,
		Groups:   NewGroupService(d, ledger, &CodeGenerator{}),
		Stores:   NewStoreService(d),
		Products: NewProductService(d, NewRetention(d.Unit, d.Log)),
		Users:    NewUserService(d, ledger, issuer),
	}
}
