package domain

import (
	"context"
	"errors"
	"time"

	"github.com/arusdata/pricebook/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecordInput captures one mutation for the audit trail. OldValues and
// NewValues hold the full record snapshots; OldAmounts and NewAmounts hold
// the numeric fields the percentage diff is computed from.
type RecordInput struct {
	SubjectType SubjectType
	SubjectID   snowflake.ID
	ChangeType  ChangeType
	OldValues   map[string]any
	NewValues   map[string]any
	OldAmounts  map[string]decimal.Decimal
	NewAmounts  map[string]decimal.Decimal
	Actor       string
	Reason      *string
}

type ListRequest struct {
	pagination.Page
	SubjectType string
	SubjectID   string
	ChangeType  string
	PriceType   string
	Currency    string
	ChangedBy   string
	StartAt     *time.Time
	EndAt       *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	Changes []ChangeLog `json:"changes"`
}

type Service interface {
	// Record appends exactly one entry using the caller's transaction handle,
	// so the audit write commits or rolls back with the mutation it describes.
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidSubjectType = errors.New("invalid_subject_type")
	ErrInvalidSubjectID   = errors.New("invalid_subject_id")
	ErrInvalidChangeType  = errors.New("invalid_change_type")
	ErrInvalidActor       = errors.New("invalid_actor")
	ErrInvalidTimeRange   = errors.New("invalid_time_range")
)
