package server

import (
	"errors"
	"net/http"
	"strings"

	changelogdomain "github.com/arusdata/pricebook/internal/changelog/domain"
	ratedomain "github.com/arusdata/pricebook/internal/exchangerate/domain"
	pricedomain "github.com/arusdata/pricebook/internal/priceversion/domain"
	applydomain "github.com/arusdata/pricebook/internal/rateapply/domain"
	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	scheduledomain "github.com/arusdata/pricebook/internal/schedule/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isRangeConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "range_conflict",
			Message: "effective range overlaps an existing version",
		}
	case isInvalidStateError(err):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_state",
			Message: "version is not in a cancellable state",
		}
	case errors.Is(err, applydomain.ErrNoPriceDefined):
		return http.StatusNotFound, errorPayload{
			Type:    "no_price_defined",
			Message: "no price defined for the requested instant",
		}
	case errors.Is(err, applydomain.ErrNoRateDefined):
		return http.StatusNotFound, errorPayload{
			Type:    "no_rate_defined",
			Message: "no exchange rate defined for the requested instant",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isPriceVersionValidationError(err),
		isExchangeRateValidationError(err),
		isChangeLogValidationError(err),
		isReferenceValidationError(err),
		isRateApplyValidationError(err):
		return true
	case errors.Is(err, scheduledomain.ErrInvalidSubjectType),
		errors.Is(err, scheduledomain.ErrInvalidHorizon):
		return true
	default:
		return false
	}
}

func isRangeConflictError(err error) bool {
	return errors.Is(err, pricedomain.ErrRangeConflict) ||
		errors.Is(err, ratedomain.ErrRangeConflict)
}

func isInvalidStateError(err error) bool {
	return errors.Is(err, pricedomain.ErrInvalidState) ||
		errors.Is(err, ratedomain.ErrInvalidState)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, pricedomain.ErrNotFound),
		errors.Is(err, ratedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isReferenceValidationError(err error) bool {
	switch {
	case errors.Is(err, referencedomain.ErrInvalidCurrency),
		errors.Is(err, referencedomain.ErrInvalidPriceType),
		errors.Is(err, referencedomain.ErrInvalidSource),
		errors.Is(err, referencedomain.ErrInvalidAmountKey):
		return true
	default:
		return false
	}
}

func isChangeLogValidationError(err error) bool {
	switch {
	case errors.Is(err, changelogdomain.ErrInvalidSubjectType),
		errors.Is(err, changelogdomain.ErrInvalidSubjectID),
		errors.Is(err, changelogdomain.ErrInvalidChangeType),
		errors.Is(err, changelogdomain.ErrInvalidActor),
		errors.Is(err, changelogdomain.ErrInvalidTimeRange):
		return true
	default:
		return false
	}
}

func isRateApplyValidationError(err error) bool {
	return errors.Is(err, applydomain.ErrInvalidAmount)
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog feeds the request logger's error_type / error_code
// fields without rendering a response.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Type
	case status == http.StatusConflict:
		return "conflict", payload.Type
	case status == http.StatusNotFound:
		return "not_found", payload.Type
	default:
		return "client", payload.Type
	}
}
