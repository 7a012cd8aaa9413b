package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusreserve/internal/domain"
)

func Success(c *gin.Context, statusCode int, data any) {
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

// DomainError writes the envelope for the reservation error taxonomy and
// reports whether err was recognised. Unknown errors are left to the caller.
func DomainError(c *gin.Context, err error) bool {
	var (
		ve  *domain.ValidationError
		so  *domain.SpaceOccupiedError
		ise *domain.InsufficientStockError
		sc  *domain.StateChangedError
		rc  *domain.ReferentialConflictError
	)
	switch {
	case errors.As(err, &ve):
		ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Reservation breaks submission rules", ve.Violations)
	case errors.As(err, &so):
		ErrorWithDetails(c, http.StatusConflict, "SPACE_OCCUPIED", err.Error(), gin.H{"conflicts": so.ConflictIDs})
	case errors.As(err, &ise):
		ErrorWithDetails(c, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error(), gin.H{
			"resource_id":   ise.ResourceID,
			"resource_name": ise.ResourceName,
			"available":     max(ise.Available, 0),
			"requested":     ise.Requested,
		})
	case errors.As(err, &sc):
		Error(c, http.StatusConflict, "STATE_CHANGED", err.Error())
	case errors.As(err, &rc):
		ErrorWithDetails(c, http.StatusConflict, "REFERENTIAL_CONFLICT", err.Error(), gin.H{"references": rc.References})
	case errors.Is(err, domain.ErrNotFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, domain.ErrForbidden):
		Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied")
	case errors.Is(err, domain.ErrInvalidTransition):
		Error(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, domain.ErrReservationFinalized):
		Error(c, http.StatusConflict, "RESERVATION_FINALIZED", err.Error())
	case errors.Is(err, domain.ErrNotEditable):
		Error(c, http.StatusConflict, "NOT_EDITABLE", err.Error())
	default:
		return false
	}
	return true
}
