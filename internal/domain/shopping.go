package domain

import (
	"context"
	"strings"
	"time"
)

// Retention limits for a group's product list.
const (
	RetentionThreshold = 100
	RetentionBatch     = 5
)

type Priority string

const (
	PriorityLow    Priority = "L"
	PriorityMedium Priority = "M"
	PriorityHigh   Priority = "H"
)

// ParsePriority accepts the persisted code or its label, case-insensitively.
// An empty string yields PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriorityMedium, nil
	case "l", "low":
		return PriorityLow, nil
	case "m", "medium":
		return PriorityMedium, nil
	case "h", "high":
		return PriorityHigh, nil
	}
	return "", ErrInvalidPriority
}

func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityHigh:
		return "High"
	default:
		return "Medium"
	}
}

type Store struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	GroupCode string    `gorm:"size:6;index;not null" json:"groupCode"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Product struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:40;not null" json:"title"`
	Priority    Priority   `gorm:"size:1;not null;default:M" json:"priority"`
	PurchasedAt *time.Time `gorm:"index" json:"purchasedAt"`
	StoreID     *uint      `gorm:"index" json:"storeId"`
	GroupCode   string     `gorm:"size:6;index;not null" json:"groupCode"`
	AddedByID   *string    `gorm:"size:36;index" json:"addedById"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type StoreRepository interface {
	Create(ctx context.Context, s *Store) error
	FindByID(ctx context.Context, id uint) (*Store, error)
	ListByGroup(ctx context.Context, code string) ([]Store, error)
	CountByGroup(ctx context.Context, code string) (int64, error)
	Rename(ctx context.Context, id uint, name string) error
	// Delete removes the store and its products.
	Delete(ctx context.Context, id uint) error
}

type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, id uint) (*Product, error)
	ListByGroup(ctx context.Context, code string, offset, limit int) ([]Product, int64, error)
	CountByGroup(ctx context.Context, code string) (int64, error)
	SetPurchasedAt(ctx context.Context, id uint, at *time.Time) error
	// OldestPurchased returns up to limit purchased products of code, oldest
	// purchase first.
	OldestPurchased(ctx context.Context, code string, limit int) ([]Product, error)
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
}
