package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// LockSubject takes a transaction-scoped exclusive lock on the subject
	// key so concurrent creators serialize even when the subject has no
	// rows to lock yet. Must be called before the overlap check.
	LockSubject(ctx context.Context, tx *gorm.DB, productID snowflake.ID, orgID *snowflake.ID) error
	Insert(ctx context.Context, db *gorm.DB, version *PriceVersion) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PriceVersion, error)
	// FindLive returns the non-cancelled versions of one subject key. With
	// forUpdate the rows are locked for the duration of the transaction on
	// dialects that support row locks.
	FindLive(ctx context.Context, db *gorm.DB, productID snowflake.ID, orgID *snowflake.ID, forUpdate bool) ([]PriceVersion, error)
	FindCurrent(ctx context.Context, db *gorm.DB, productID snowflake.ID, orgID *snowflake.ID, asOf time.Time) (*PriceVersion, error)
	// FindUpcoming returns versions with effective_from in (after, until],
	// ascending. A nil productID means all subjects in scope.
	FindUpcoming(ctx context.Context, db *gorm.DB, productID *snowflake.ID, orgID *snowflake.ID, after, until time.Time) ([]PriceVersion, error)
	History(ctx context.Context, db *gorm.DB, productID snowflake.ID, orgID *snowflake.ID, offset, limit int) ([]PriceVersion, int64, error)
	// MarkCancelled flips the cancelled flag and reports how many rows it
	// hit. Zero means another writer cancelled the version first.
	MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, by string) (int64, error)
}
