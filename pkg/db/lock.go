package db

import (
	"context"

	"gorm.io/gorm"
)

// SubjectLock backs the per-subject mutual exclusion point on MySQL, which
// has no advisory lock scoped to a transaction.
type SubjectLock struct {
	SubjectKey string `gorm:"primaryKey;type:varchar(191);column:subject_key"`
}

func (SubjectLock) TableName() string { return "subject_locks" }

// AcquireSubjectLock serializes writers of one subject key until the
// surrounding transaction ends. The lock exists independent of data rows, so
// two concurrent first writers of a brand-new subject still queue behind one
// another rather than both passing an overlap check against an empty set.
func AcquireSubjectLock(ctx context.Context, tx *gorm.DB, key string) error {
	switch tx.Dialector.Name() {
	case "postgres":
		return tx.WithContext(ctx).Exec(
			`SELECT pg_advisory_xact_lock(hashtextextended(?, 0))`, key,
		).Error
	case "mysql":
		// Row lock on the key's lock row, held to commit or rollback.
		return tx.WithContext(ctx).Exec(
			`INSERT INTO subject_locks (subject_key) VALUES (?)
			 ON DUPLICATE KEY UPDATE subject_key = subject_key`, key,
		).Error
	default:
		// sqlite admits one writer at a time; the transaction serializes.
		return nil
	}
}
