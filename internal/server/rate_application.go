package server

import (
	"net/http"
	"time"

	applydomain "github.com/arusdata/pricebook/internal/rateapply/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (s *Server) EffectivePrice(c *gin.Context) {
	asOf, err := parseOptionalTime(c.Query("as_of"))
	if err != nil {
		AbortWithError(c, newValidationError("as_of", "invalid_time", "invalid value"))
		return
	}

	resp, err := s.applySvc.EffectivePrice(c.Request.Context(), applydomain.PriceQuery{
		ProductID: c.Query("product_id"),
		PriceType: c.Query("price_type"),
		Currency:  c.Query("currency"),
		AsOf:      asOf,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) EffectiveRate(c *gin.Context) {
	asOf, err := parseOptionalTime(c.Query("as_of"))
	if err != nil {
		AbortWithError(c, newValidationError("as_of", "invalid_time", "invalid value"))
		return
	}

	resp, err := s.applySvc.EffectiveRate(c.Request.Context(), applydomain.RateQuery{
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

type convertRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	AsOf         *time.Time      `json:"as_of"`
}

func (s *Server) Convert(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.applySvc.Convert(c.Request.Context(), applydomain.ConvertRequest{
		Amount:       req.Amount,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		AsOf:         req.AsOf,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConvertPrice(c *gin.Context) {
	asOf, err := parseOptionalTime(c.Query("as_of"))
	if err != nil {
		AbortWithError(c, newValidationError("as_of", "invalid_time", "invalid value"))
		return
	}

	resp, err := s.applySvc.ConvertPrice(c.Request.Context(), applydomain.ConvertPriceRequest{
		ProductID:      c.Query("product_id"),
		PriceType:      c.Query("price_type"),
		Currency:       c.Query("currency"),
		TargetCurrency: c.Query("target_currency"),
		AsOf:           asOf,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
