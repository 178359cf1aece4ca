package api

import (
	"net/http"
	"trialguard-api/internal/database"
	"trialguard-api/internal/services"

	"github.com/gin-gonic/gin"
)

// TrialSignalsRequest carries the client signal data for both trial endpoints.
// Timestamp and SessionID are accepted for client convenience but are volatile
// and never participate in fingerprint derivation.
type TrialSignalsRequest struct {
	UserAgent        string `json:"user_agent" binding:"required"`
	ScreenResolution string `json:"screen_resolution" binding:"required"`
	Timezone         string `json:"timezone" binding:"required"`
	Language         string `json:"language"`
	Platform         string `json:"platform"`
	Timestamp        string `json:"timestamp"`
	SessionID        string `json:"session_id"`
}

// signals converts the request into the stable signal set
func (r *TrialSignalsRequest) signals() services.DeviceSignals {
	return services.DeviceSignals{
		UserAgent:        r.UserAgent,
		ScreenResolution: r.ScreenResolution,
		Timezone:         r.Timezone,
		Language:         r.Language,
		Platform:         r.Platform,
	}
}

// CheckTrialResponse represents check trial response
type CheckTrialResponse struct {
	Success     bool   `json:"success"`
	IsEligible  bool   `json:"is_eligible"`
	Reason      string `json:"reason,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// CheckTrialEligibility decides whether the caller may start a free trial
// POST /api/trial/check
func CheckTrialEligibility(c *gin.Context) {
	var req TrialSignalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request format: " + err.Error(),
		})
		return
	}

	ip := clientIP(c)

	// Best-effort request throttle; redis being down never blocks a check
	redisService := services.NewRedisService()
	if !redisService.AllowCheckRequest(c.Request.Context(), ip) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error":   "Too many requests",
		})
		return
	}

	fingerprintService := services.NewFingerprintService()
	hash := fingerprintService.Derive(req.signals(), ip)

	eligibilityService := services.NewEligibilityService(database.NewFingerprintStore(database.GetDB()))
	result, err := eligibilityService.CheckEligibility(c.Request.Context(), hash, ip)
	if err != nil {
		// Fail open even in the error payload: the verdict stays eligible
		c.JSON(http.StatusInternalServerError, CheckTrialResponse{
			Success:     false,
			IsEligible:  true,
			Fingerprint: hash,
		})
		return
	}

	c.JSON(http.StatusOK, CheckTrialResponse{
		Success:     true,
		IsEligible:  result.IsEligible,
		Reason:      result.Reason,
		Fingerprint: hash,
	})
}
