package middleware

import (
	"net/http"
	"strings"
	"time"
	"trialguard-api/internal/response"
	"trialguard-api/internal/services"

	"github.com/gin-gonic/gin"
)

var SessionService *services.SessionService

// InitSessionManager initializes the session manager
func InitSessionManager() {
	SessionService = services.NewSessionService()
}

// SessionAuthMiddleware gates endpoints on a recognized account session.
// Unauthenticated callers are rejected here, before the trial core is reached.
func SessionAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get session token from Authorization header or X-Session-Token
		token := c.GetHeader("X-Session-Token")
		if token == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing session token"))
			c.Abort()
			return
		}

		// Validate session against the session table
		userID, ok := SessionService.ValidateSession(token)
		if !ok {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired session"))
			c.Abort()
			return
		}

		// Store user identity and additional info in context
		c.Set("user_id", userID)
		c.Set("request_time", time.Now())
		c.Next()
	}
}
