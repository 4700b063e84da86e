package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Currency is a supported settlement currency.
type Currency struct {
	Code      string    `json:"code" gorm:"type:char(3);primaryKey;column:code"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Symbol    *string   `json:"symbol,omitempty" gorm:"type:text"`
	MinorUnit int16     `json:"minor_unit" gorm:"type:smallint;not null"`
	IsActive  bool      `json:"is_active,omitempty" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Currency) TableName() string { return "currencies" }

// CurrencyCode identifies one of the supported currencies.
type CurrencyCode string

const (
	IDR CurrencyCode = "IDR"
	CNY CurrencyCode = "CNY"
)

// PriceType is the sales channel dimension of a price.
type PriceType string

const (
	Channel PriceType = "channel"
	Direct  PriceType = "direct"
	List    PriceType = "list"
)

// Source records how a version entered the system.
type Source string

const (
	SourceManual Source = "manual"
	SourceImport Source = "import"
)

var (
	ErrInvalidCurrency  = errors.New("invalid_currency")
	ErrInvalidPriceType = errors.New("invalid_price_type")
	ErrInvalidSource    = errors.New("invalid_source")
	ErrInvalidAmountKey = errors.New("invalid_amount_key")
)

func ParseCurrency(value string) (CurrencyCode, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(IDR):
		return IDR, nil
	case string(CNY):
		return CNY, nil
	default:
		return "", ErrInvalidCurrency
	}
}

func ParsePriceType(value string) (PriceType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(Channel):
		return Channel, nil
	case string(Direct):
		return Direct, nil
	case string(List):
		return List, nil
	default:
		return "", ErrInvalidPriceType
	}
}

func ParseSource(value string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(SourceManual):
		return SourceManual, nil
	case string(SourceImport):
		return SourceImport, nil
	default:
		return "", ErrInvalidSource
	}
}

// AmountKey addresses one price dimension: "<price_type>_<currency>",
// e.g. "direct_idr". Keeping amounts keyed this way keeps validation and
// diffing uniform however many dimensions exist.
func AmountKey(priceType PriceType, currency CurrencyCode) string {
	return fmt.Sprintf("%s_%s", priceType, strings.ToLower(string(currency)))
}

// ParseAmountKey splits an amount key back into its dimensions.
func ParseAmountKey(key string) (PriceType, CurrencyCode, error) {
	parts := strings.SplitN(strings.TrimSpace(key), "_", 2)
	if len(parts) != 2 {
		return "", "", ErrInvalidAmountKey
	}
	priceType, err := ParsePriceType(parts[0])
	if err != nil {
		return "", "", ErrInvalidAmountKey
	}
	currency, err := ParseCurrency(parts[1])
	if err != nil {
		return "", "", ErrInvalidAmountKey
	}
	return priceType, currency, nil
}
