package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ledropshop/wa-drops-backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// BearerTokenMiddleware verifies tokens minted by the external auth service.
// This backend never issues tokens, it only checks the signature and expiry.
type BearerTokenMiddleware struct {
	cfg *config.AuthConfig
}

func NewBearerTokenMiddleware(cfg *config.AuthConfig) *BearerTokenMiddleware {
	return &BearerTokenMiddleware{cfg: cfg}
}

// BearerTokenAuthMiddleware validates the JWT and sets user info in context
func (m *BearerTokenMiddleware) BearerTokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")

		// Check if it's Bearer token
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		// Extract token
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(m.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			c.Set("user_id", sub)
		}

		c.Next()
	}
}
