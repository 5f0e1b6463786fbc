package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"pickfast/internal/core/mail"
	"pickfast/internal/domain"
	"pickfast/internal/repo"
	"pickfast/pkg/utils"
)

const (
	verificationCodeLen = 6
	maxFeedbackLen      = 2000
)

type UserService struct {
	unit       *repo.Unit
	ledger     *MembershipLedger
	issuer     TokenIssuer
	log        *zap.Logger
	now        func() time.Time
	mail       mail.Mailer
	feedbackTo []string
	// Rand feeds verification codes; crypto/rand.Reader when nil.
	Rand io.Reader
}

func NewUserService(d Deps, ledger *MembershipLedger, issuer TokenIssuer) *UserService {
	d = d.withDefaults()
	return &UserService{
		unit:       d.Unit,
		ledger:     ledger,
		issuer:     issuer,
		log:        d.Log,
		now:        d.Now,
		mail:       d.Mail,
		feedbackTo: d.FeedbackTo,
	}
}

type Registration struct {
	Email     string
	Name      string
	Password  string
	GroupCode *string
}

// Register creates a user and optionally joins them to a group. A join that
// the group rejects rolls the whole registration back.
func (s *UserService) Register(ctx context.Context, in Registration) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email", domain.ErrInvalidInput)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password", domain.ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	code, err := s.verificationCode()
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:               utils.NewID(),
		Email:            email,
		Name:             name,
		PasswordHash:     hash,
		Role:             domain.RoleUser,
		VerificationCode: &code,
	}
	var touched []string
	err = s.unit.Transaction(ctx, func(tx *repo.Unit) error {
		existing, err := tx.Users().FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrEmailTaken
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			if repo.IsDuplicateKey(err) {
				return domain.ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		if in.GroupCode != nil {
			touched, err = s.ledger.assign(ctx, tx, u, in.GroupCode, true)
			return err
		}
		return nil
	})
	if err != nil {
		s.ledger.rejected(err, u.ID, in.GroupCode)
		return nil, err
	}
	s.log.Info("user registered", zap.String("user", u.ID), zap.Stringp("group", in.GroupCode))
	s.ledger.views.invalidate(ctx, touched...)

	// The account exists either way; a lost welcome mail is recovered
	// through ResendVerification.
	if err := s.send(ctx, "welcome", mail.Message{
		To:      []string{u.Email},
		Subject: "Welcome to PickFast!",
		Body: fmt.Sprintf("Hi %s,\n\nThank you for signing up for PickFast. Your verification code is: %s",
			u.Name, code),
	}); err != nil {
		s.log.Warn("welcome mail failed", zap.String("user", u.ID), zap.Error(err))
	}
	return s.unit.Users().FindByID(ctx, u.ID)
}

// VerifyEmail marks the account of email verified when code matches its
// pending verification code. Codes are single use.
func (s *UserService) VerifyEmail(ctx context.Context, email, code string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, fmt.Errorf("%w: email and code required", domain.ErrInvalidInput)
	}
	u, err := s.unit.Users().FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || u.VerificationCode == nil ||
		subtle.ConstantTimeCompare([]byte(*u.VerificationCode), []byte(code)) != 1 {
		return nil, domain.ErrInvalidVerificationCode
	}
	if err := s.unit.Users().MarkVerified(ctx, u.ID); err != nil {
		return nil, err
	}
	s.log.Info("email verified", zap.String("user", u.ID))
	u.Verified, u.VerificationCode = true, nil
	return u, nil
}

// ResendVerification mails userID its pending verification code again,
// at most once per domain.EmailCooldown.
func (s *UserService) ResendVerification(ctx context.Context, userID string) error {
	var (
		u    *domain.User
		code string
	)
	err := s.unit.Transaction(ctx, func(tx *repo.Unit) error {
		var err error
		u, err = s.claimMailSlot(ctx, tx, userID, func(u *domain.User) error {
			if u.Verified {
				return domain.ErrAlreadyVerified
			}
			return nil
		})
		if err != nil {
			return err
		}
		if u.VerificationCode != nil {
			code = *u.VerificationCode
			return nil
		}
		if code, err = s.verificationCode(); err != nil {
			return err
		}
		return tx.Users().SetVerificationCode(ctx, u.ID, code)
	})
	if err != nil {
		return err
	}
	return s.send(ctx, "verification", mail.Message{
		To:      []string{u.Email},
		Subject: "Verification code",
		Body:    fmt.Sprintf("Hi %s,\n\nHere is your verification code: %s", u.Name, code),
	})
}

// Feedback forwards message from userID to the support inbox, sharing the
// mail cooldown with ResendVerification.
func (s *UserService) Feedback(ctx context.Context, userID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" || utf8.RuneCountInString(message) > maxFeedbackLen {
		return fmt.Errorf("%w: feedback must be 1..%d characters", domain.ErrInvalidInput, maxFeedbackLen)
	}
	var u *domain.User
	err := s.unit.Transaction(ctx, func(tx *repo.Unit) error {
		var err error
		u, err = s.claimMailSlot(ctx, tx, userID, nil)
		return err
	})
	if err != nil {
		return err
	}
	return s.send(ctx, "feedback", mail.Message{
		ReplyTo: u.Email,
		To:      s.feedbackTo,
		Subject: "New Feedback PickFast",
		Body:    fmt.Sprintf("Feedback message:\n\n%s\n\nRespond to: %s", message, u.Email),
	})
}

// claimMailSlot locks userID and stamps its last mail time. check runs first;
// a CooldownError is returned when the previous mail is too recent.
func (s *UserService) claimMailSlot(ctx context.Context, tx *repo.Unit, userID string, check func(*domain.User) error) (*domain.User, error) {
	u, err := tx.Users().FindByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	if check != nil {
		if err := check(u); err != nil {
			return nil, err
		}
	}
	now := s.now()
	if left := u.EmailCooldownLeft(now); left > 0 {
		return nil, &domain.CooldownError{Remaining: left}
	}
	if err := tx.Users().TouchEmailSent(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("stamp mail time: %w", err)
	}
	u.LastEmailSent = &now
	return u, nil
}

func (s *UserService) send(ctx context.Context, kind string, m mail.Message) error {
	if err := s.mail.Send(ctx, m); err != nil {
		mailsSent.WithLabelValues(kind, "failed").Inc()
		return fmt.Errorf("send %s mail: %w", kind, err)
	}
	mailsSent.WithLabelValues(kind, "sent").Inc()
	return nil
}

var digits = big.NewInt(10)

func (s *UserService) verificationCode() (string, error) {
	r := s.Rand
	if r == nil {
		r = rand.Reader
	}
	var b strings.Builder
	for i := 0; i < verificationCodeLen; i++ {
		n, err := rand.Int(r, digits)
		if err != nil {
			return "", fmt.Errorf("draw verification code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// Login checks the password and returns a signed token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	u, err := s.unit.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, err
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		return "", nil, domain.ErrInvalidCredentials
	}
	tok, err := s.issuer.Issue(u.ID, u.Role)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return tok, u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.unit.Users().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, query string, offset, limit int) ([]domain.User, int64, error) {
	return s.unit.Users().List(ctx, query, offset, limit)
}

// SetRole promotes or demotes a user between RoleUser and RoleStaff.
func (s *UserService) SetRole(ctx context.Context, email, role string) (*domain.User, error) {
	if role != domain.RoleUser && role != domain.RoleStaff {
		return nil, fmt.Errorf("%w: role %q", domain.ErrInvalidInput, role)
	}
	u, err := s.unit.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	if err := s.unit.Users().SetRole(ctx, u.ID, role); err != nil {
		return nil, err
	}
	u.Role = role
	s.log.Info("user role changed", zap.String("user", u.ID), zap.String("role", role))
	return u, nil
}
