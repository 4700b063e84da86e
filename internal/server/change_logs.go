package server

import (
	"net/http"

	changelogdomain "github.com/arusdata/pricebook/internal/changelog/domain"
	"github.com/arusdata/pricebook/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListChangeLogs(c *gin.Context) {
	var page pagination.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startAt, err := parseOptionalTime(c.Query("start_at"))
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_time", "invalid value"))
		return
	}
	endAt, err := parseOptionalTime(c.Query("end_at"))
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_time", "invalid value"))
		return
	}

	resp, err := s.changelogSvc.List(c.Request.Context(), changelogdomain.ListRequest{
		Page:        page,
		SubjectType: c.Query("subject_type"),
		SubjectID:   c.Query("subject_id"),
		ChangeType:  c.Query("change_type"),
		PriceType:   c.Query("price_type"),
		Currency:    c.Query("currency"),
		ChangedBy:   c.Query("changed_by"),
		StartAt:     startAt,
		EndAt:       endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
