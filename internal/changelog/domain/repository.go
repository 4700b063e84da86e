package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	SubjectType SubjectType
	SubjectID   *snowflake.ID
	ChangeType  ChangeType
	PriceType   string
	Currency    string
	ChangedBy   string
	StartAt     *time.Time
	EndAt       *time.Time
	Offset      int
	Limit       int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *ChangeLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]ChangeLog, int64, error)
}
