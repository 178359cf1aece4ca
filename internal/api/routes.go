package api

import (
	"trialguard-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine) {
	// Initialize session manager
	middleware.InitSessionManager()

	// API route group
	api := r.Group("/api")
	{
		// Trial routes
		trial := api.Group("/trial")
		{
			// Check is public: fingerprints are derived without authentication
			trial.POST("/check", CheckTrialEligibility)

			// Record requires a recognized account session
			record := trial.Group("")
			record.Use(middleware.SessionAuthMiddleware())
			{
				record.POST("/record", RecordTrialUsage)
			}
		}

		// Administrative read path
		admin := api.Group("/admin")
		{
			admin.GET("/fingerprints", ListFingerprints)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "trialguard-api",
		})
	})
}
