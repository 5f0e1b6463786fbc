package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrGroupNotFound           = errors.New("group not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrStoreNotFound           = errors.New("store not found")
	ErrProductNotFound         = errors.New("product not found")
	ErrCodeGenerationExhausted = errors.New("group code generation exhausted")
	ErrEmailTaken              = errors.New("email already registered")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrInvalidPriority         = errors.New("invalid priority")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrAlreadyVerified         = errors.New("email already verified")
)

// CooldownError rejects a mail-sending request made too soon after the last.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	secs := int(e.Remaining.Round(time.Second) / time.Second)
	return fmt.Sprintf("try again in %d minutes and %d seconds", secs/60, secs%60)
}

type DenyReason string

const (
	DenyPrivate     DenyReason = "private"
	DenyBlacklisted DenyReason = "blacklisted"
	DenyNotAdmin    DenyReason = "not_admin"
	DenyNotMember   DenyReason = "not_member"
)

// PermissionDeniedError rejects an operation because of group policy.
type PermissionDeniedError struct {
	Reason DenyReason
}

func (e *PermissionDeniedError) Error() string {
	switch e.Reason {
	case DenyPrivate:
		return "permission denied: group is private"
	case DenyBlacklisted:
		return "permission denied: user is blacklisted"
	case DenyNotAdmin:
		return "permission denied: group admin required"
	case DenyNotMember:
		return "permission denied: not a group member"
	}
	return "permission denied"
}

func Denied(r DenyReason) error { return &PermissionDeniedError{Reason: r} }

// DeniedReason extracts the reason when err is a PermissionDeniedError.
func DeniedReason(err error) (DenyReason, bool) {
	var pe *PermissionDeniedError
	if errors.As(err, &pe) {
		return pe.Reason, true
	}
	return "", false
}

// InvariantViolation is panicked with when persisted state contradicts the
// membership invariants. It is a programming error, never a user error.
type InvariantViolation struct {
	Msg string
}

func (v InvariantViolation) Error() string { return "invariant violation: " + v.Msg }

func Invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(InvariantViolation{Msg: fmt.Sprintf(format, args...)})
	}
}
