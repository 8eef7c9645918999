package api

import (
	"errors"
	"math"
	"net/http"

	"geohunt/internal/service"
	"geohunt/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

// writeError renders a service error. Anything outside the known
// taxonomy is logged and reported as a server error.
func writeError(c *gin.Context, err error, action string) {
	var geoErr *service.GeofenceError

	switch {
	case errors.As(err, &geoErr):
		c.JSON(http.StatusForbidden, gin.H{
			"error":           "you are too far from the clue location",
			"distance_meters": math.Round(geoErr.DistanceMeters),
			"radius_meters":   geoErr.RadiusMeters,
		})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredential):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credential"})
	case errors.Is(err, service.ErrHuntNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "hunt not found"})
	case errors.Is(err, service.ErrClueNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "clue not found"})
	case errors.Is(err, service.ErrNotStarted):
		c.JSON(http.StatusNotFound, gin.H{"error": "hunt not started"})
	case errors.Is(err, service.ErrNoPrize):
		c.JSON(http.StatusNotFound, gin.H{"error": "no prize for this hunt"})
	case errors.Is(err, service.ErrHuntInactive):
		c.JSON(http.StatusForbidden, gin.H{"error": "hunt is not active"})
	case errors.Is(err, service.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, gin.H{
			"error":             "hunt already completed",
			"already_completed": true,
		})
	case errors.Is(err, service.ErrClueInUse):
		c.JSON(http.StatusConflict, gin.H{"error": "participants are still working on this clue"})
	case errors.Is(err, service.ErrIncorrectAnswer):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "incorrect answer"})
	case errors.Is(err, service.ErrCouponMismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "coupon code does not match the issued prize"})
	default:
		logger.Logger().Error("failed to "+action, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
	}
}
