package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sketch_club/internal/utils"
)

const (
	UserIDKey   = "userID"
	UsernameKey = "username"
)

// AuthMiddleware 是一個 Gin 中間件，用於驗證請求的 JWT token。
// 瀏覽器無法在 WebSocket 升級請求上設置標頭，所以也接受 ?token= 參數。
func AuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			// 檢查 Authorization 頭的格式
			parts := strings.SplitN(authHeader, " ", 2)
			if !(len(parts) == 2 && parts[0] == "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
				return
			}
			token = parts[1]
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		claims, err := tokens.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Next()
	}
}

// UserID 取出中間件設置的使用者身分
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
