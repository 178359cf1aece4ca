package api

import (
	"net/http"
	"trialguard-api/internal/database"
	"trialguard-api/internal/services"

	"github.com/gin-gonic/gin"
)

// RecordTrialResponse represents record trial response
type RecordTrialResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RecordTrialUsage marks the caller's trial consumed, at most once per fingerprint
// POST /api/trial/record (session required)
func RecordTrialUsage(c *gin.Context) {
	var req TrialSignalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, RecordTrialResponse{
			Success: false,
			Error:   "Invalid request format: " + err.Error(),
		})
		return
	}

	// Set by the session middleware
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, RecordTrialResponse{
			Success: false,
			Error:   "Missing user session",
		})
		return
	}

	ip := clientIP(c)
	fingerprintService := services.NewFingerprintService()
	hash := fingerprintService.Derive(req.signals(), ip)

	trialService := services.NewTrialService(database.NewFingerprintStore(database.GetDB()))
	if err := trialService.RecordUsage(c.Request.Context(), hash, ip, userID, req.signals()); err != nil {
		// Fail closed: no grant is fabricated when the write did not happen
		c.JSON(http.StatusInternalServerError, RecordTrialResponse{
			Success: false,
			Error:   "Failed to record trial usage",
		})
		return
	}

	c.JSON(http.StatusOK, RecordTrialResponse{
		Success: true,
		Message: "Trial usage recorded",
	})
}
