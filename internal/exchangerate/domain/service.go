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
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Current(ctx context.Context, q CurrentQuery) (*Response, error)
	Upcoming(ctx context.Context, q UpcomingQuery) ([]Response, error)
	History(ctx context.Context, req HistoryRequest) (HistoryResponse, error)
	Cancel(ctx context.Context, req CancelRequest) (*Response, error)
}

type CreateRequest struct {
	FromCurrency  string          `json:"from_currency"`
	ToCurrency    string          `json:"to_currency"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
	Source        string          `json:"source,omitempty"`
	ChangeReason  *string         `json:"change_reason,omitempty"`
	Actor         string          `json:"-"`
}

type CurrentQuery struct {
	FromCurrency string     `form:"from_currency"`
	ToCurrency   string     `form:"to_currency"`
	AsOf         *time.Time `form:"as_of"`
}

type UpcomingQuery struct {
	Horizon time.Duration `form:"-"`
}

type HistoryRequest struct {
	pagination.Page
	FromCurrency string `form:"from_currency"`
	ToCurrency   string `form:"to_currency"`
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
	ID            snowflake.ID                 `json:"id"`
	FromCurrency  referencedomain.CurrencyCode `json:"from_currency"`
	ToCurrency    referencedomain.CurrencyCode `json:"to_currency"`
	Rate          decimal.Decimal              `json:"rate"`
	EffectiveFrom time.Time                    `json:"effective_from"`
	EffectiveTo   *time.Time                   `json:"effective_to,omitempty"`
	Status        effective.Status             `json:"status"`
	Source        referencedomain.Source       `json:"source"`
	Cancelled     bool                         `json:"cancelled"`
	CancelledAt   *time.Time                   `json:"cancelled_at,omitempty"`
	CancelledBy   *string                      `json:"cancelled_by,omitempty"`
	ChangeReason  *string                      `json:"change_reason,omitempty"`
	CreatedBy     string                       `json:"created_by"`
	CreatedAt     time.Time                    `json:"created_at"`
}

var (
	ErrInvalidCurrencyPair   = errors.New("invalid_currency_pair")
	ErrInvalidRate           = errors.New("invalid_rate")
	ErrInvalidEffectiveRange = errors.New("invalid_effective_range")
	ErrInvalidActor          = errors.New("invalid_actor")
	ErrInvalidHorizon        = errors.New("invalid_horizon")
	ErrInvalidID             = errors.New("invalid_id")
	ErrNotFound              = errors.New("not_found")
	ErrRangeConflict         = errors.New("range_conflict")
	ErrInvalidState          = errors.New("invalid_state")
)
