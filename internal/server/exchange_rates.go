package server

import (
	"net/http"
	"time"

	ratedomain "github.com/arusdata/pricebook/internal/exchangerate/domain"
	"github.com/arusdata/pricebook/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createExchangeRateRequest struct {
	FromCurrency  string          `json:"from_currency"`
	ToCurrency    string          `json:"to_currency"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to"`
	Source        string          `json:"source"`
	ChangeReason  *string         `json:"change_reason"`
}

func (s *Server) CreateExchangeRate(c *gin.Context) {
	var req createExchangeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rateSvc.Create(c.Request.Context(), ratedomain.CreateRequest{
		FromCurrency:  req.FromCurrency,
		ToCurrency:    req.ToCurrency,
		Rate:          req.Rate,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
		Source:        req.Source,
		ChangeReason:  req.ChangeReason,
		Actor:         requestActor(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetExchangeRate(c *gin.Context) {
	resp, err := s.rateSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CurrentExchangeRate(c *gin.Context) {
	asOf, err := parseOptionalTime(c.Query("as_of"))
	if err != nil {
		AbortWithError(c, newValidationError("as_of", "invalid_time", "invalid value"))
		return
	}

	resp, err := s.rateSvc.Current(c.Request.Context(), ratedomain.CurrentQuery{
		FromCurrency: c.Query("from_currency"),
		ToCurrency:   c.Query("to_currency"),
		AsOf:         asOf,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpcomingExchangeRates(c *gin.Context) {
	horizon, err := parseOptionalDuration(c.Query("horizon"))
	if err != nil {
		AbortWithError(c, newValidationError("horizon", "invalid_horizon", "invalid value"))
		return
	}

	resp, err := s.rateSvc.Upcoming(c.Request.Context(), ratedomain.UpcomingQuery{
		Horizon: horizon,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExchangeRateHistory(c *gin.Context) {
	var page pagination.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rateSvc.History(c.Request.Context(), ratedomain.HistoryRequest{
		Page:         page,
		FromCurrency: c.Query("from_currency"),
		ToCurrency:   c.Query("to_currency"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelExchangeRate(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.rateSvc.Cancel(c.Request.Context(), ratedomain.CancelRequest{
		ID:     c.Param("id"),
		Actor:  requestActor(c),
		Reason: req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isExchangeRateValidationError(err error) bool {
	switch err {
	case ratedomain.ErrInvalidCurrencyPair,
		ratedomain.ErrInvalidRate,
		ratedomain.ErrInvalidEffectiveRange,
		ratedomain.ErrInvalidActor,
		ratedomain.ErrInvalidHorizon,
		ratedomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
