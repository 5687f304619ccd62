package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/orbitalworks/foundry/internal/authgw"
	"github.com/orbitalworks/foundry/internal/catalog"
	facilitydomain "github.com/orbitalworks/foundry/internal/facility/domain"
	jobdomain "github.com/orbitalworks/foundry/internal/job/domain"
	"github.com/orbitalworks/foundry/internal/ledger"
	"gorm.io/gorm"
)

var ErrInvalidRequest = errors.New("invalid_request")

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware turns the last gin error into a JSON response.
// Handlers report failures with AbortWithError and never write error bodies
// themselves.
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

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, authgw.ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, jobdomain.ErrForbidden),
		errors.Is(err, facilitydomain.ErrNotOwner):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	case errors.Is(err, catalog.ErrUnavailable),
		errors.Is(err, ledger.ErrUnavailable),
		errors.Is(err, authgw.ErrUnavailable):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_unavailable",
			Message: "upstream service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, jobdomain.ErrNotFound),
		errors.Is(err, facilitydomain.ErrNotFound),
		// Cancellation is reported as if the endpoint did not exist.
		errors.Is(err, jobdomain.ErrCancellationUnsupported),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, jobdomain.ErrInvalidAction),
		errors.Is(err, jobdomain.ErrInvalidQuantity),
		errors.Is(err, jobdomain.ErrUnableToProduce),
		errors.Is(err, facilitydomain.ErrUnknownBlueprint),
		errors.Is(err, facilitydomain.ErrNotProductionCapable),
		errors.Is(err, ledger.ErrRejected):
		return true
	default:
		return false
	}
}
