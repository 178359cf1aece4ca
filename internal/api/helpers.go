package api

import (
	"strings"
	"trialguard-api/internal/services"

	"github.com/gin-gonic/gin"
)

// clientIP extracts the caller's network address, best-effort. Proxy headers
// win over the transport address; a multi-valued X-Forwarded-For is reduced to
// its first listed, trimmed entry. Falls back to the sentinel when nothing
// usable is present.
func clientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		return realIP
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return services.UnknownIP
}
