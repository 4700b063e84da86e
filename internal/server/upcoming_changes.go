package server

import (
	"net/http"

	scheduledomain "github.com/arusdata/pricebook/internal/schedule/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListUpcomingChanges(c *gin.Context) {
	horizon, err := parseOptionalDuration(c.Query("horizon"))
	if err != nil {
		AbortWithError(c, newValidationError("horizon", "invalid_horizon", "invalid value"))
		return
	}

	resp, err := s.scheduleSvc.ListUpcoming(c.Request.Context(), scheduledomain.ListRequest{
		Horizon: horizon,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelUpcomingChange(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.scheduleSvc.CancelUpcoming(c.Request.Context(), scheduledomain.CancelRequest{
		SubjectType: c.Param("subject_type"),
		ID:          c.Param("id"),
		Actor:       requestActor(c),
		Reason:      req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
