package service

import (
	"context"
	"errors"
	"time"

	"github.com/arusdata/pricebook/internal/clock"
	ratedomain "github.com/arusdata/pricebook/internal/exchangerate/domain"
	"github.com/arusdata/pricebook/internal/observability/metrics"
	pricedomain "github.com/arusdata/pricebook/internal/priceversion/domain"
	applydomain "github.com/arusdata/pricebook/internal/rateapply/domain"
	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var one = decimal.NewFromInt(1)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	PriceSvc pricedomain.Service
	RateSvc  ratedomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	priceSvc pricedomain.Service
	rateSvc  ratedomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) applydomain.Service {
	return &Service{
		log:      p.Log.Named("rateapply.service"),
		clock:    p.Clock,
		priceSvc: p.PriceSvc,
		rateSvc:  p.RateSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) EffectivePrice(ctx context.Context, q applydomain.PriceQuery) (*applydomain.PriceResult, error) {
	priceType, err := referencedomain.ParsePriceType(q.PriceType)
	if err != nil {
		return nil, err
	}
	currency, err := referencedomain.ParseCurrency(q.Currency)
	if err != nil {
		return nil, err
	}

	version, err := s.priceSvc.Current(ctx, pricedomain.CurrentQuery{
		ProductID: q.ProductID,
		AsOf:      q.AsOf,
	})
	if err != nil {
		if errors.Is(err, pricedomain.ErrNotFound) {
			return nil, applydomain.ErrNoPriceDefined
		}
		return nil, err
	}

	amount, ok := version.Amounts[referencedomain.AmountKey(priceType, currency)]
	if !ok {
		return nil, applydomain.ErrNoPriceDefined
	}

	return &applydomain.PriceResult{
		VersionID:     version.ID,
		ProductID:     version.ProductID,
		PriceType:     priceType,
		Currency:      currency,
		Amount:        amount,
		RateSnapshot:  version.RateSnapshot,
		EffectiveFrom: version.EffectiveFrom,
		EffectiveTo:   version.EffectiveTo,
	}, nil
}

func (s *Service) EffectiveRate(ctx context.Context, q applydomain.RateQuery) (*applydomain.RateResult, error) {
	version, err := s.rateSvc.Current(ctx, ratedomain.CurrentQuery{
		FromCurrency: q.FromCurrency,
		ToCurrency:   q.ToCurrency,
		AsOf:         q.AsOf,
	})
	if err != nil {
		if errors.Is(err, ratedomain.ErrNotFound) {
			s.metrics.RecordRateLookup(ctx, "miss")
			return nil, applydomain.ErrNoRateDefined
		}
		return nil, err
	}

	s.metrics.RecordRateLookup(ctx, "hit")
	return &applydomain.RateResult{
		VersionID:     version.ID,
		FromCurrency:  version.FromCurrency,
		ToCurrency:    version.ToCurrency,
		Rate:          version.Rate,
		EffectiveFrom: version.EffectiveFrom,
	}, nil
}

func (s *Service) Convert(ctx context.Context, req applydomain.ConvertRequest) (*applydomain.ConvertResult, error) {
	if req.Amount.IsNegative() {
		return nil, applydomain.ErrInvalidAmount
	}

	rate, err := s.EffectiveRate(ctx, applydomain.RateQuery{
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		AsOf:         req.AsOf,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordConversion(ctx, string(rate.FromCurrency), string(rate.ToCurrency))
	return &applydomain.ConvertResult{
		Amount:       req.Amount,
		FromCurrency: rate.FromCurrency,
		ToCurrency:   rate.ToCurrency,
		Rate:         rate.Rate,
		Converted:    req.Amount.Mul(rate.Rate),
	}, nil
}

func (s *Service) ConvertPrice(ctx context.Context, req applydomain.ConvertPriceRequest) (*applydomain.ConvertPriceResult, error) {
	target, err := referencedomain.ParseCurrency(req.TargetCurrency)
	if err != nil {
		return nil, err
	}

	price, err := s.EffectivePrice(ctx, applydomain.PriceQuery{
		ProductID: req.ProductID,
		PriceType: req.PriceType,
		Currency:  req.Currency,
		AsOf:      req.AsOf,
	})
	if err != nil {
		return nil, err
	}

	if price.Currency == target {
		return &applydomain.ConvertPriceResult{
			Price:          *price,
			TargetCurrency: target,
			Rate:           one,
			RateOrigin:     applydomain.OriginLive,
			Converted:      price.Amount,
		}, nil
	}

	rate, origin, err := s.conversionRate(ctx, price, target, req.AsOf)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordConversion(ctx, string(price.Currency), string(target))
	return &applydomain.ConvertPriceResult{
		Price:          *price,
		TargetCurrency: target,
		Rate:           rate,
		RateOrigin:     origin,
		Converted:      price.Amount.Mul(rate),
	}, nil
}

// conversionRate prefers the rate snapshot frozen on the price version so a
// historical price converts the same way it did when it was current. The
// snapshot is stored in the IDR to CNY direction and inverted when needed.
func (s *Service) conversionRate(ctx context.Context, price *applydomain.PriceResult, target referencedomain.CurrencyCode, asOf *time.Time) (decimal.Decimal, applydomain.RateOrigin, error) {
	if price.RateSnapshot != nil && !price.RateSnapshot.IsZero() {
		snapshot := *price.RateSnapshot
		switch {
		case price.Currency == referencedomain.IDR && target == referencedomain.CNY:
			return snapshot, applydomain.OriginSnapshot, nil
		case price.Currency == referencedomain.CNY && target == referencedomain.IDR:
			return one.Div(snapshot), applydomain.OriginSnapshot, nil
		}
	}

	live, err := s.EffectiveRate(ctx, applydomain.RateQuery{
		FromCurrency: string(price.Currency),
		ToCurrency:   string(target),
		AsOf:         asOf,
	})
	if err != nil {
		return decimal.Decimal{}, "", err
	}
	return live.Rate, applydomain.OriginLive, nil
}
