package response

import (
	"errors"
	"log"
	"net/http"

	"homestay/internal/domain"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// Paginated wraps a page of items with its paging metadata.
func Paginated(c *gin.Context, items any, total int64, page, perPage int) {
	Success(c, http.StatusOK, gin.H{
		"items": items,
		"pagination": gin.H{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}

// FromError maps domain errors onto the HTTP envelope. Anything unknown is a
// 500 and is attached to the gin context for the error logger.
func FromError(c *gin.Context, err error) {
	var (
		validationErr *domain.ValidationError
		capacityErr   *domain.CapacityError
		stateErr      *domain.InvalidStateError
		notFoundErr   *domain.NotFoundError
		noPlanErr     *domain.NoRatePlanError
	)

	switch {
	case errors.As(err, &capacityErr):
		ErrorWithDetails(c, http.StatusConflict, "CAPACITY_CONFLICT", "Not enough inventory for the requested dates", gin.H{
			"date":      capacityErr.Date.String(),
			"requested": capacityErr.Requested,
			"remaining": capacityErr.Remaining,
			"shortfall": capacityErr.Shortfall,
		})
	case errors.As(err, &stateErr):
		ErrorWithDetails(c, http.StatusConflict, "INVALID_STATE_TRANSITION", stateErr.Error(), gin.H{
			"current":   stateErr.Current,
			"attempted": stateErr.Attempted,
		})
	case errors.As(err, &validationErr):
		ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Error(), gin.H{
			"field":  validationErr.Field,
			"reason": validationErr.Reason,
		})
	case errors.As(err, &notFoundErr):
		Error(c, http.StatusNotFound, "NOT_FOUND", notFoundErr.Error())
	case errors.As(err, &noPlanErr):
		Error(c, http.StatusUnprocessableEntity, "NO_RATE_PLAN", noPlanErr.Error())
	case errors.Is(err, domain.ErrValidation):
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		_ = c.Error(err)
		log.Printf("unhandled_error path=%s error=%q", c.Request.URL.Path, err)
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
