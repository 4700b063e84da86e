package service

import (
	"context"
	"sort"

	changelogdomain "github.com/arusdata/pricebook/internal/changelog/domain"
	"github.com/arusdata/pricebook/internal/clock"
	"github.com/arusdata/pricebook/internal/config"
	"github.com/arusdata/pricebook/internal/effective"
	ratedomain "github.com/arusdata/pricebook/internal/exchangerate/domain"
	pricedomain "github.com/arusdata/pricebook/internal/priceversion/domain"
	scheduledomain "github.com/arusdata/pricebook/internal/schedule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Cfg      config.Config
	Clock    clock.Clock
	PriceSvc pricedomain.Service
	RateSvc  ratedomain.Service
}

type Service struct {
	log      *zap.Logger
	cfg      config.Config
	clock    clock.Clock
	priceSvc pricedomain.Service
	rateSvc  ratedomain.Service
}

func New(p Params) scheduledomain.Service {
	return &Service{
		log:      p.Log.Named("schedule.service"),
		cfg:      p.Cfg,
		clock:    p.Clock,
		priceSvc: p.PriceSvc,
		rateSvc:  p.RateSvc,
	}
}

func (s *Service) ListUpcoming(ctx context.Context, req scheduledomain.ListRequest) (scheduledomain.ListResponse, error) {
	horizon := req.Horizon
	if horizon == 0 {
		horizon = s.cfg.UpcomingHorizon
	}
	if horizon < 0 {
		return scheduledomain.ListResponse{}, scheduledomain.ErrInvalidHorizon
	}

	now := s.clock.Now()

	prices, err := s.priceSvc.Upcoming(ctx, pricedomain.UpcomingQuery{Horizon: horizon})
	if err != nil {
		return scheduledomain.ListResponse{}, err
	}
	rates, err := s.rateSvc.Upcoming(ctx, ratedomain.UpcomingQuery{Horizon: horizon})
	if err != nil {
		return scheduledomain.ListResponse{}, err
	}

	changes := make([]scheduledomain.UpcomingChange, 0, len(prices)+len(rates))
	for i := range prices {
		price := prices[i]
		countdown := effective.Countdown(price.EffectiveFrom, now)
		changes = append(changes, scheduledomain.UpcomingChange{
			SubjectType:   changelogdomain.SubjectPrice,
			ID:            price.ID,
			EffectiveFrom: price.EffectiveFrom,
			EffectiveIn:   countdown,
			EffectiveInS:  int64(countdown.Seconds()),
			Price:         &price,
		})
	}
	for i := range rates {
		rate := rates[i]
		countdown := effective.Countdown(rate.EffectiveFrom, now)
		changes = append(changes, scheduledomain.UpcomingChange{
			SubjectType:   changelogdomain.SubjectRate,
			ID:            rate.ID,
			EffectiveFrom: rate.EffectiveFrom,
			EffectiveIn:   countdown,
			EffectiveInS:  int64(countdown.Seconds()),
			Rate:          &rate,
		})
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].EffectiveFrom.Before(changes[j].EffectiveFrom)
	})

	return scheduledomain.ListResponse{
		AsOf:    now,
		Horizon: horizon,
		Changes: changes,
	}, nil
}

func (s *Service) CancelUpcoming(ctx context.Context, req scheduledomain.CancelRequest) (*scheduledomain.UpcomingChange, error) {
	now := s.clock.Now()

	switch changelogdomain.SubjectType(req.SubjectType) {
	case changelogdomain.SubjectPrice:
		cancelled, err := s.priceSvc.Cancel(ctx, pricedomain.CancelRequest{
			ID:     req.ID,
			Actor:  req.Actor,
			Reason: req.Reason,
		})
		if err != nil {
			return nil, err
		}
		return &scheduledomain.UpcomingChange{
			SubjectType:   changelogdomain.SubjectPrice,
			ID:            cancelled.ID,
			EffectiveFrom: cancelled.EffectiveFrom,
			Price:         cancelled,
		}, nil
	case changelogdomain.SubjectRate:
		cancelled, err := s.rateSvc.Cancel(ctx, ratedomain.CancelRequest{
			ID:     req.ID,
			Actor:  req.Actor,
			Reason: req.Reason,
		})
		if err != nil {
			return nil, err
		}
		return &scheduledomain.UpcomingChange{
			SubjectType:   changelogdomain.SubjectRate,
			ID:            cancelled.ID,
			EffectiveFrom: cancelled.EffectiveFrom,
			Rate:          cancelled,
		}, nil
	default:
		s.log.Debug("rejecting cancel for unknown subject type",
			zap.String("subject_type", req.SubjectType),
			zap.Time("as_of", now),
		)
		return nil, scheduledomain.ErrInvalidSubjectType
	}
}
