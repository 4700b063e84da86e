package domain

import (
	"context"
	"time"

	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// LockSubject takes a transaction-scoped exclusive lock on the currency
	// pair so concurrent creators serialize even when the pair has no rows
	// to lock yet. Must be called before the overlap check.
	LockSubject(ctx context.Context, tx *gorm.DB, from, to referencedomain.CurrencyCode) error
	Insert(ctx context.Context, db *gorm.DB, version *RateVersion) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RateVersion, error)
	FindLive(ctx context.Context, db *gorm.DB, from, to referencedomain.CurrencyCode, forUpdate bool) ([]RateVersion, error)
	FindCurrent(ctx context.Context, db *gorm.DB, from, to referencedomain.CurrencyCode, asOf time.Time) (*RateVersion, error)
	FindUpcoming(ctx context.Context, db *gorm.DB, after, until time.Time) ([]RateVersion, error)
	History(ctx context.Context, db *gorm.DB, from, to referencedomain.CurrencyCode, offset, limit int) ([]RateVersion, int64, error)
	// MarkCancelled flips the cancelled flag and reports how many rows it
	// hit. Zero means another writer cancelled the version first.
	MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, by string) (int64, error)
}
