package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carbon-registry/certification-service/internal/domain"
)

// writeError maps domain error kinds onto HTTP statuses. Validation and
// ineligibility reasons are surfaced verbatim so the caller can display
// them; state conflicts come back as 409 so clients treat them as
// "someone already acted on this".
func writeError(c *gin.Context, err error) {
	var (
		validationErr   *domain.ValidationError
		notFoundErr     *domain.NotFoundError
		invalidStateErr *domain.InvalidStateError
		ineligibleErr   *domain.IneligibleError
		unauthorizedErr *domain.UnauthorizedError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &invalidStateErr):
		c.JSON(http.StatusConflict, gin.H{"error": invalidStateErr.Error()})
	case errors.As(err, &ineligibleErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  ineligibleErr.Error(),
			"reason": ineligibleErr.Reason,
		})
	case errors.As(err, &unauthorizedErr):
		c.JSON(http.StatusForbidden, gin.H{"error": unauthorizedErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
