package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	HeaderUserID = "X-User-ID"
	HeaderRoleID = "X-Role-ID"
)

// список публичных эндпоинтов, которые не требуют роли
func isPublicPath(path string) bool {
	return strings.HasPrefix(path, "/swagger") || strings.HasPrefix(path, "/healthz")
}

// Identity copies the caller identity established by the upstream gateway
// into the gin context as "user_id" (string) and "role_id" (int).
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		roleStr := strings.TrimSpace(c.GetHeader(HeaderRoleID))
		// браузерный WebSocket не умеет ставить заголовки
		if websocket.IsWebSocketUpgrade(c.Request) {
			if userID == "" {
				userID = strings.TrimSpace(c.Query("user_id"))
			}
			if roleStr == "" {
				roleStr = strings.TrimSpace(c.Query("role_id"))
			}
		}
		if userID == "" || roleStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
			return
		}
		roleID, err := strconv.Atoi(roleStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid role id"})
			return
		}
		c.Set("user_id", userID)
		c.Set("role_id", roleID)
		c.Next()
	}
}
