package middleware

import (
	"messenger/services"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenAuthMiddleware - аутентификация запросов.
// Поддерживает два варианта:
// 1. Authorization: Bearer <token> - токен, выданный при логине
// 2. X-User-ID заголовок (для тестов)
func TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Сначала проверяем X-User-ID заголовок
		userIDHeader := c.GetHeader("X-User-ID")
		if userIDHeader != "" {
			userID, err := strconv.ParseInt(userIDHeader, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid X-User-ID format"})
				c.Abort()
				return
			}
			c.Set("user_id", userID)
			c.Next()
			return
		}

		// Затем проверяем Authorization Bearer token
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			token := strings.TrimPrefix(authHeader, "Bearer ")
			userID, err := services.ResolveToken(c.Request.Context(), token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				c.Abort()
				return
			}
			c.Set("user_id", userID)
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required: provide Authorization Bearer token"})
		c.Abort()
	}
}
