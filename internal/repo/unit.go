package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pickfast/internal/domain"
)

// Unit bundles the repositories over one gorm handle. Inside Transaction the
// handle is the transaction, so every repository shares it.
type Unit struct{ db *gorm.DB }

func NewUnit(db *gorm.DB) *Unit { return &Unit{db: db} }

func (u *Unit) Users() domain.UserRepository       { return NewUserRepo(u.db) }
func (u *Unit) Groups() domain.GroupRepository     { return NewGroupRepo(u.db) }
func (u *Unit) Stores() domain.StoreRepository     { return NewStoreRepo(u.db) }
func (u *Unit) Products() domain.ProductRepository { return NewProductRepo(u.db) }

func (u *Unit) Transaction(ctx context.Context, fn func(tx *Unit) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Unit{db: tx})
	})
}

// AutoMigrate creates or updates every table the repositories use.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Group{},
		&domain.BlacklistEntry{},
		&domain.Store{},
		&domain.Product{},
	)
}

// forUpdate adds a row lock on dialects that have one; SQLite serializes
// writers on its own.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
