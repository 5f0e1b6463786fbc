package domain

import (
	"context"
	"time"
)

// CodeLength and CodeAlphabet describe group codes.
const (
	CodeLength   = 6
	CodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

type Group struct {
	Code      string    `gorm:"primaryKey;size:6" json:"code"`
	AdminID   *string   `gorm:"size:36;uniqueIndex" json:"adminId"`
	Private   bool      `gorm:"not null;default:false" json:"private"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAdmin reports whether userID holds the admin role of g.
func (g *Group) IsAdmin(userID string) bool {
	return g.AdminID != nil && *g.AdminID == userID
}

// BlacklistEntry bars a user from (re)joining a group.
type BlacklistEntry struct {
	GroupCode string    `gorm:"primaryKey;size:6" json:"groupCode"`
	UserID    string    `gorm:"primaryKey;size:36" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (BlacklistEntry) TableName() string { return "group_blacklist" }

// Member is the public projection of a user inside a group view.
type Member struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Admin    bool       `json:"admin"`
	JoinedAt *time.Time `json:"joinedAt,omitempty"`
}

type GroupView struct {
	Group
	Members      []Member `json:"members"`
	Blacklist    []string `json:"blacklist"`
	StoreCount   int64    `json:"storeCount"`
	ProductCount int64    `json:"productCount"`
}

type GroupRepository interface {
	Create(ctx context.Context, g *Group) error
	FindByCode(ctx context.Context, code string) (*Group, error)
	FindByCodeForUpdate(ctx context.Context, code string) (*Group, error)
	FindByAdmin(ctx context.Context, userID string) (*Group, error)
	Exists(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, offset, limit int) ([]Group, int64, error)
	SetAdmin(ctx context.Context, code string, adminID *string) error
	SetPrivate(ctx context.Context, code string, private bool) error
	// Delete removes the group with its stores, products and blacklist and
	// detaches any remaining members.
	Delete(ctx context.Context, code string) error

	AddToBlacklist(ctx context.Context, code, userID string) error
	RemoveFromBlacklist(ctx context.Context, code, userID string) error
	IsBlacklisted(ctx context.Context, code, userID string) (bool, error)
	Blacklist(ctx context.Context, code string) ([]string, error)
}
