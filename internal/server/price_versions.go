package server

import (
	"net/http"
	"strings"
	"time"

	pricedomain "github.com/arusdata/pricebook/internal/priceversion/domain"
	"github.com/arusdata/pricebook/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createPriceVersionRequest struct {
	ProductID     string                     `json:"product_id"`
	Amounts       map[string]decimal.Decimal `json:"amounts"`
	RateSnapshot  *decimal.Decimal           `json:"rate_snapshot"`
	EffectiveFrom time.Time                  `json:"effective_from"`
	EffectiveTo   *time.Time                 `json:"effective_to"`
	Source        string                     `json:"source"`
	ChangeReason  *string                    `json:"change_reason"`
}

func (s *Server) CreatePriceVersion(c *gin.Context) {
	var req createPriceVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.priceSvc.Create(c.Request.Context(), pricedomain.CreateRequest{
		ProductID:     strings.TrimSpace(req.ProductID),
		Amounts:       req.Amounts,
		RateSnapshot:  req.RateSnapshot,
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

func (s *Server) GetPriceVersion(c *gin.Context) {
	resp, err := s.priceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CurrentPrice(c *gin.Context) {
	asOf, err := parseOptionalTime(c.Query("as_of"))
	if err != nil {
		AbortWithError(c, newValidationError("as_of", "invalid_time", "invalid value"))
		return
	}

	resp, err := s.priceSvc.Current(c.Request.Context(), pricedomain.CurrentQuery{
		ProductID: c.Query("product_id"),
		AsOf:      asOf,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpcomingPriceVersions(c *gin.Context) {
	horizon, err := parseOptionalDuration(c.Query("horizon"))
	if err != nil {
		AbortWithError(c, newValidationError("horizon", "invalid_horizon", "invalid value"))
		return
	}

	resp, err := s.priceSvc.Upcoming(c.Request.Context(), pricedomain.UpcomingQuery{
		ProductID: c.Query("product_id"),
		Horizon:   horizon,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PriceVersionHistory(c *gin.Context) {
	var page pagination.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.priceSvc.History(c.Request.Context(), pricedomain.HistoryRequest{
		Page:      page,
		ProductID: c.Query("product_id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type cancelRequest struct {
	Reason *string `json:"reason"`
}

func (s *Server) CancelPriceVersion(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.priceSvc.Cancel(c.Request.Context(), pricedomain.CancelRequest{
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

func isPriceVersionValidationError(err error) bool {
	switch err {
	case pricedomain.ErrInvalidProduct,
		pricedomain.ErrInvalidAmounts,
		pricedomain.ErrInvalidEffectiveRange,
		pricedomain.ErrInvalidRateSnapshot,
		pricedomain.ErrInvalidActor,
		pricedomain.ErrInvalidHorizon,
		pricedomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
