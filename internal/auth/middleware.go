package auth

import (
	"errors"
	"net/http"
	"strings"

	"gymmanager/internal/api"

	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// Session is the authenticated gym owner attached to a request. Handlers read
// it through CurrentSession instead of any global state.
type Session struct {
	GymID    int
	Username string
}

func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
			abort(c, "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abort(c, "Token is empty")
			return
		}

		claims, err := ValidateToken(tokenString, secret)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				abort(c, "Token expired")
			} else {
				abort(c, "Invalid or malformed token")
			}
			return
		}

		if claims.TokenType != tokenTypeAccess {
			abort(c, "Access token required")
			return
		}

		SetSession(c, Session{GymID: claims.GymID, Username: claims.Username})
		c.Next()
	}
}

func abort(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{Error: message})
}

func SetSession(c *gin.Context, s Session) {
	c.Set(sessionKey, s)
}

func CurrentSession(c *gin.Context) (Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return Session{}, false
	}
	s, ok := v.(Session)
	if !ok || s.GymID <= 0 {
		return Session{}, false
	}
	return s, true
}

// RequireSession resolves the session or writes 401. Handlers behind
// Middleware always have one; this guards routes wired without it.
func RequireSession(c *gin.Context) (Session, bool) {
	s, ok := CurrentSession(c)
	if !ok {
		api.RespondError(c, http.StatusUnauthorized, "Gym not authenticated")
	}
	return s, ok
}
