package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"stream-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by RequireAuth
const (
	ContextUserID    = "user_id"
	ContextSessionID = "session_id"
)

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// RequireAuth validates the bearer access token and stores the caller's
// user id and session id in the gin context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Fail(c, http.StatusUnauthorized, "authorization header is required")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(am.jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			response.Fail(c, http.StatusUnauthorized, "invalid token")
			return
		}

		// Stream tickets are for the websocket handshake only
		if typ, _ := claims["typ"].(string); typ == "stream" {
			response.Fail(c, http.StatusUnauthorized, "invalid token type")
			return
		}

		userID := claimString(claims, "sub")
		if userID == "" {
			userID = claimString(claims, "user_id")
		}
		if userID == "" {
			response.Fail(c, http.StatusUnauthorized, "invalid user ID in token")
			return
		}

		sessionID := claimString(claims, "sid")
		if sessionID == "" {
			sessionID = claimString(claims, "jti")
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextSessionID, sessionID)
		c.Next()
	}
}

// RequireInternalKey guards endpoints called by collaborating services.
func RequireInternalKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Internal-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			response.Fail(c, http.StatusUnauthorized, "invalid internal key")
			return
		}
		c.Next()
	}
}

func claimString(claims jwt.MapClaims, name string) string {
	switch v := claims[name].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
