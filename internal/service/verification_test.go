package service

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"pickfast/internal/domain"
)

var verificationPattern = regexp.MustCompile(`^[0-9]{6}$`)

func (f *fixture) register(email string) *domain.User {
	f.t.Helper()
	u, err := f.svc.Users.Register(f.ctx, Registration{Email: email, Password: "pw-123456"})
	if err != nil {
		f.t.Fatalf("register %s: %v", email, err)
	}
	return u
}

func wantCooldown(t *testing.T, err error) time.Duration {
	t.Helper()
	var cd *domain.CooldownError
	if !errors.As(err, &cd) {
		t.Fatalf("expected cooldown, got %v", err)
	}
	return cd.Remaining
}

func TestRegisterMailsVerificationCode(t *testing.T) {
	f := newFixture(t)
	u := f.register("gina@example.com")
	if u.Verified || u.VerificationCode == nil || !verificationPattern.MatchString(*u.VerificationCode) {
		t.Fatalf("user = %+v", u)
	}
	m := f.mail.last(t)
	if len(m.To) != 1 || m.To[0] != "gina@example.com" || m.Subject != "Welcome to PickFast!" {
		t.Errorf("mail = %+v", m)
	}
	if !strings.Contains(m.Body, *u.VerificationCode) {
		t.Errorf("code missing from %q", m.Body)
	}

	g := f.group(f.user("alice"), true)
	before := f.mail.count()
	if _, err := f.svc.Users.Register(f.ctx, Registration{Email: "hal@example.com", Password: "pw", GroupCode: &g.Code}); err == nil {
		t.Fatal("private group accepted registration")
	}
	if f.mail.count() != before {
		t.Error("rejected registration sent mail")
	}
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	f := newFixture(t)
	f.mail.fail = errors.New("smtp down")
	u := f.register("ivy@example.com")
	if f.reload(u).Email != "ivy@example.com" {
		t.Fatal("user missing")
	}
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	u := f.register("jay@example.com")
	code := *u.VerificationCode

	_, err := f.svc.Users.VerifyEmail(f.ctx, "jay@example.com", "000000x")
	wantErr(t, err, domain.ErrInvalidVerificationCode)
	_, err = f.svc.Users.VerifyEmail(f.ctx, "nobody@example.com", code)
	wantErr(t, err, domain.ErrInvalidVerificationCode)
	_, err = f.svc.Users.VerifyEmail(f.ctx, "jay@example.com", " ")
	wantErr(t, err, domain.ErrInvalidInput)

	got, err := f.svc.Users.VerifyEmail(f.ctx, " JAY@example.com", code)
	if err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if !got.Verified {
		t.Error("not verified")
	}
	row := f.reload(u)
	if !row.Verified || row.VerificationCode != nil {
		t.Errorf("stored = verified %v code %v", row.Verified, row.VerificationCode)
	}

	_, err = f.svc.Users.VerifyEmail(f.ctx, "jay@example.com", code)
	wantErr(t, err, domain.ErrInvalidVerificationCode)
}

func TestResendVerificationCooldown(t *testing.T) {
	f := newFixture(t)
	u := f.register("kim@example.com")
	sent := f.mail.count()

	if err := f.svc.Users.ResendVerification(f.ctx, u.ID); err != nil {
		t.Fatalf("first resend: %v", err)
	}
	m := f.mail.last(t)
	if m.Subject != "Verification code" || !strings.Contains(m.Body, *u.VerificationCode) {
		t.Errorf("mail = %+v", m)
	}

	left := wantCooldown(t, f.svc.Users.ResendVerification(f.ctx, u.ID))
	if left <= 4*time.Minute || left > domain.EmailCooldown {
		t.Errorf("remaining = %v", left)
	}
	if f.mail.count() != sent+1 {
		t.Errorf("sent %d mails during cooldown", f.mail.count()-sent-1)
	}

	f.clock.advance(domain.EmailCooldown)
	if err := f.svc.Users.ResendVerification(f.ctx, u.ID); err != nil {
		t.Fatalf("resend after cooldown: %v", err)
	}
}

func TestResendVerificationWhenVerified(t *testing.T) {
	f := newFixture(t)
	u := f.register("lou@example.com")
	if _, err := f.svc.Users.VerifyEmail(f.ctx, u.Email, *u.VerificationCode); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	wantErr(t, f.svc.Users.ResendVerification(f.ctx, u.ID), domain.ErrAlreadyVerified)
	if f.reload(u).LastEmailSent != nil {
		t.Error("refused resend started a cooldown")
	}
	wantErr(t, f.svc.Users.ResendVerification(f.ctx, "ghost"), domain.ErrUserNotFound)
}

func TestResendVerificationIssuesMissingCode(t *testing.T) {
	f := newFixture(t)
	u := f.user("mo") // created without a pending code
	if err := f.svc.Users.ResendVerification(f.ctx, u.ID); err != nil {
		t.Fatalf("ResendVerification: %v", err)
	}
	row := f.reload(u)
	if row.VerificationCode == nil || !verificationPattern.MatchString(*row.VerificationCode) {
		t.Fatalf("code = %v", row.VerificationCode)
	}
	if !strings.Contains(f.mail.last(t).Body, *row.VerificationCode) {
		t.Error("mailed code differs from stored code")
	}
}

func TestFeedbackSharesCooldown(t *testing.T) {
	f := newFixture(t)
	u := f.register("ned@example.com")

	wantErr(t, f.svc.Users.Feedback(f.ctx, u.ID, "   "), domain.ErrInvalidInput)
	wantErr(t, f.svc.Users.Feedback(f.ctx, u.ID, strings.Repeat("x", maxFeedbackLen+1)), domain.ErrInvalidInput)

	if err := f.svc.Users.Feedback(f.ctx, u.ID, "Please add aisles"); err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	m := f.mail.last(t)
	if len(m.To) != 1 || m.To[0] != "support@pick-fast.com" || m.ReplyTo != u.Email {
		t.Errorf("mail = %+v", m)
	}
	if !strings.Contains(m.Body, "Please add aisles") || !strings.Contains(m.Body, u.Email) {
		t.Errorf("body = %q", m.Body)
	}

	wantCooldown(t, f.svc.Users.Feedback(f.ctx, u.ID, "again"))
	wantCooldown(t, f.svc.Users.ResendVerification(f.ctx, u.ID))
}

func TestResendReportsMailFailure(t *testing.T) {
	f := newFixture(t)
	u := f.register("ola@example.com")
	boom := errors.New("smtp down")
	f.mail.fail = boom
	wantErr(t, f.svc.Users.ResendVerification(f.ctx, u.ID), boom)
}
