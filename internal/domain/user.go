package domain

import (
	"context"
	"time"
)

const (
	RoleUser  = "user"
	RoleStaff = "admin"
)

type User struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	Email            string     `gorm:"uniqueIndex;size:191" json:"email"`
	Name             string     `gorm:"size:64" json:"name"`
	PasswordHash     string     `gorm:"size:191" json:"-"`
	Role             string     `gorm:"size:16" json:"role"` // "user"/"admin"
	GroupCode        *string    `gorm:"size:6;index" json:"groupCode"`
	JoinedGroupAt    *time.Time `json:"joinedGroupAt,omitempty"`
	Verified         bool       `json:"verified"`
	VerificationCode *string    `gorm:"size:16" json:"-"` // cleared once used
	LastEmailSent    *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// InGroup reports whether the user is currently a member of code.
func (u *User) InGroup(code string) bool {
	return u.GroupCode != nil && *u.GroupCode == code
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByIDForUpdate(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// List pages through users; a non-empty query matches email or name.
	List(ctx context.Context, query string, offset, limit int) ([]User, int64, error)
	SetRole(ctx context.Context, id, role string) error
	// MarkVerified sets verified and clears the verification code.
	MarkVerified(ctx context.Context, id string) error
	SetVerificationCode(ctx context.Context, id, code string) error
	TouchEmailSent(ctx context.Context, id string, at time.Time) error
	// SetGroup moves the user to code (nil = no group) and stamps joinedAt.
	SetGroup(ctx context.Context, id string, code *string, joinedAt time.Time) error
	Members(ctx context.Context, code string) ([]User, error)
	CountMembers(ctx context.Context, code string) (int64, error)
	// EarliestMemberExcept returns the longest-standing member of code other
	// than exceptID, ties broken by ID. nil when there is none.
	EarliestMemberExcept(ctx context.Context, code, exceptID string) (*User, error)
}

// EmailCooldown is the minimum gap between mails a user triggers.
const EmailCooldown = 5 * time.Minute

// EmailCooldownLeft is how long u must wait before triggering another mail.
func (u *User) EmailCooldownLeft(now time.Time) time.Duration {
	if u.LastEmailSent == nil {
		return 0
	}
	left := EmailCooldown - now.Sub(*u.LastEmailSent)
	if left < 0 {
		return 0
	}
	return left
}
