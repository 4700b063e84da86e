package domain

import (
	"context"
	"errors"
	"time"

	"github.com/arusdata/pricebook/internal/effective"
	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	"github.com/arusdata/pricebook/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Service interface {
	// Create validates and inserts a new version. The effective range must
	// not overlap any live version of the same subject key; the loser of a
	// concurrent race receives ErrRangeConflict.
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	// Current resolves the version whose range contains asOf.
	Current(ctx context.Context, q CurrentQuery) (*Response, error)
	Upcoming(ctx context.Context, q UpcomingQuery) ([]Response, error)
	History(ctx context.Context, req HistoryRequest) (HistoryResponse, error)
	// Cancel withdraws a version that has not started taking effect yet.
	Cancel(ctx context.Context, req CancelRequest) (*Response, error)
}

// RateSource supplies the current exchange rate so a price created without
// an explicit snapshot can capture one. Implemented by the exchange-rate
// store.
type RateSource interface {
	CurrentRate(ctx context.Context, from, to referencedomain.CurrencyCode, asOf time.Time) (*decimal.Decimal, error)
}

type CreateRequest struct {
	ProductID     string                     `json:"product_id"`
	Amounts       map[string]decimal.Decimal `json:"amounts"`
	RateSnapshot  *decimal.Decimal           `json:"rate_snapshot,omitempty"`
	EffectiveFrom time.Time                  `json:"effective_from"`
	EffectiveTo   *time.Time                 `json:"effective_to,omitempty"`
	Source        string                     `json:"source,omitempty"`
	ChangeReason  *string                    `json:"change_reason,omitempty"`
	Actor         string                     `json:"-"`
}

type CurrentQuery struct {
	ProductID string     `form:"product_id"`
	AsOf      *time.Time `form:"as_of"`
}

type UpcomingQuery struct {
	ProductID string        `form:"product_id"`
	Horizon   time.Duration `form:"-"`
}

type HistoryRequest struct {
	pagination.Page
	ProductID string `form:"product_id"`
}

type HistoryResponse struct {
	pagination.PageInfo
	Versions []Response `json:"versions"`
}

type CancelRequest struct {
	ID     string  `json:"-"`
	Actor  string  `json:"-"`
	Reason *string `json:"reason,omitempty"`
}

type Response struct {
	ID            snowflake.ID           `json:"id"`
	OrgID         *snowflake.ID          `json:"organization_id,omitempty"`
	ProductID     snowflake.ID           `json:"product_id"`
	Amounts       AmountMap              `json:"amounts"`
	RateSnapshot  *decimal.Decimal       `json:"rate_snapshot,omitempty"`
	EffectiveFrom time.Time              `json:"effective_from"`
	EffectiveTo   *time.Time             `json:"effective_to,omitempty"`
	Status        effective.Status       `json:"status"`
	Source        referencedomain.Source `json:"source"`
	Cancelled     bool                   `json:"cancelled"`
	CancelledAt   *time.Time             `json:"cancelled_at,omitempty"`
	CancelledBy   *string                `json:"cancelled_by,omitempty"`
	ChangeReason  *string                `json:"change_reason,omitempty"`
	CreatedBy     string                 `json:"created_by"`
	CreatedAt     time.Time              `json:"created_at"`
}

var (
	ErrInvalidProduct        = errors.New("invalid_product")
	ErrInvalidAmounts        = errors.New("invalid_amounts")
	ErrInvalidEffectiveRange = errors.New("invalid_effective_range")
	ErrInvalidRateSnapshot   = errors.New("invalid_rate_snapshot")
	ErrInvalidActor          = errors.New("invalid_actor")
	ErrInvalidHorizon        = errors.New("invalid_horizon")
	ErrInvalidID             = errors.New("invalid_id")
	ErrNotFound              = errors.New("not_found")
	ErrRangeConflict         = errors.New("range_conflict")
	ErrInvalidState          = errors.New("invalid_state")
)
