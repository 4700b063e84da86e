package domain

import (
	"context"
	"errors"
	"time"

	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RateOrigin says which rate a price conversion used: the snapshot frozen
// on the price version, or the rate effective at the query instant.
type RateOrigin string

const (
	OriginSnapshot RateOrigin = "snapshot"
	OriginLive     RateOrigin = "live"
)

type Service interface {
	// EffectivePrice resolves one amount of the price version in force at
	// asOf. ErrNoPriceDefined when no version covers the instant or the
	// version carries no amount for the (price type, currency) pair.
	EffectivePrice(ctx context.Context, q PriceQuery) (*PriceResult, error)
	// EffectiveRate resolves the exchange rate in force at asOf.
	EffectiveRate(ctx context.Context, q RateQuery) (*RateResult, error)
	// Convert applies the effective rate to an arbitrary amount.
	Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error)
	// ConvertPrice converts a resolved price into the target currency,
	// preferring the version's rate snapshot for reproducibility.
	ConvertPrice(ctx context.Context, req ConvertPriceRequest) (*ConvertPriceResult, error)
}

type PriceQuery struct {
	ProductID string     `form:"product_id"`
	PriceType string     `form:"price_type"`
	Currency  string     `form:"currency"`
	AsOf      *time.Time `form:"as_of"`
}

type PriceResult struct {
	VersionID     snowflake.ID                 `json:"version_id"`
	ProductID     snowflake.ID                 `json:"product_id"`
	PriceType     referencedomain.PriceType    `json:"price_type"`
	Currency      referencedomain.CurrencyCode `json:"currency"`
	Amount        decimal.Decimal              `json:"amount"`
	RateSnapshot  *decimal.Decimal             `json:"rate_snapshot,omitempty"`
	EffectiveFrom time.Time                    `json:"effective_from"`
	EffectiveTo   *time.Time                   `json:"effective_to,omitempty"`
}

type RateQuery struct {
	FromCurrency string     `form:"from_currency"`
	ToCurrency   string     `form:"to_currency"`
	AsOf         *time.Time `form:"as_of"`
}

type RateResult struct {
	VersionID     snowflake.ID                 `json:"version_id"`
	FromCurrency  referencedomain.CurrencyCode `json:"from_currency"`
	ToCurrency    referencedomain.CurrencyCode `json:"to_currency"`
	Rate          decimal.Decimal              `json:"rate"`
	EffectiveFrom time.Time                    `json:"effective_from"`
}

type ConvertRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	AsOf         *time.Time      `json:"as_of,omitempty"`
}

type ConvertResult struct {
	Amount       decimal.Decimal              `json:"amount"`
	FromCurrency referencedomain.CurrencyCode `json:"from_currency"`
	ToCurrency   referencedomain.CurrencyCode `json:"to_currency"`
	Rate         decimal.Decimal              `json:"rate"`
	Converted    decimal.Decimal              `json:"converted"`
}

type ConvertPriceRequest struct {
	ProductID      string     `form:"product_id"`
	PriceType      string     `form:"price_type"`
	Currency       string     `form:"currency"`
	TargetCurrency string     `form:"target_currency"`
	AsOf           *time.Time `form:"as_of"`
}

type ConvertPriceResult struct {
	Price          PriceResult                  `json:"price"`
	TargetCurrency referencedomain.CurrencyCode `json:"target_currency"`
	Rate           decimal.Decimal              `json:"rate"`
	RateOrigin     RateOrigin                   `json:"rate_origin"`
	Converted      decimal.Decimal              `json:"converted"`
}

var (
	ErrNoPriceDefined = errors.New("no_price_defined")
	ErrNoRateDefined  = errors.New("no_rate_defined")
	ErrInvalidAmount  = errors.New("invalid_amount")
)
