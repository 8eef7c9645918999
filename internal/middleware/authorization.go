package middleware

import (
	"net/http"

	"geohunt/pkg/auth"
	"geohunt/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

const isAdminKey = "is_admin"

// Authorization grants catalog administration to the Telegram users listed
// in configuration.
type Authorization struct {
	admins map[int64]struct{}
}

func NewAuthorization(adminIDs []int64) *Authorization {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Authorization{
		admins: admins,
	}
}

func (a *Authorization) IsAdmin(telegramID int64) bool {
	_, ok := a.admins[telegramID]
	return ok
}

func (a *Authorization) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		telegramUser, ok := auth.UserFromContext(c)
		if !ok {
			log.Error("telegram user data not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !a.IsAdmin(telegramUser.ID) {
			log.Info("unauthorized access attempt to admin endpoint",
				zap.Int64("telegram_id", telegramUser.ID))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Set(isAdminKey, true)
		c.Next()
	}
}

// DetectAdmin marks admin requests without rejecting anyone else, for
// routes whose response only widens for admins.
func (a *Authorization) DetectAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if telegramUser, ok := auth.UserFromContext(c); ok && a.IsAdmin(telegramUser.ID) {
			c.Set(isAdminKey, true)
		}
		c.Next()
	}
}

func IsAdminRequest(c *gin.Context) bool {
	return c.GetBool(isAdminKey)
}
