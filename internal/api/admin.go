package api

import (
	"context"
	"net/http"
	"time"
	"trialguard-api/internal/config"
	"trialguard-api/internal/database"
	"trialguard-api/internal/response"
	"trialguard-api/internal/services"

	"github.com/gin-gonic/gin"
)

// ViewerFingerprint is the admin viewer's own derived fingerprint, evaluated
// through the same check operation the production flow uses.
type ViewerFingerprint struct {
	Fingerprint string `json:"fingerprint"`
	IsEligible  bool   `json:"is_eligible"`
	Reason      string `json:"reason,omitempty"`
}

// ListFingerprints returns all fingerprint records, newest first, together
// with the viewer's own fingerprint for comparison/highlighting
// GET /api/admin/fingerprints
func ListFingerprints(c *gin.Context) {
	store := database.NewFingerprintStore(database.GetDB())

	ctx, cancel := context.WithTimeout(c.Request.Context(),
		time.Duration(config.AppConfig.StoreTimeoutSecs)*time.Second)
	defer cancel()

	records, err := store.ListRecords(ctx)
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to list fingerprint records")
		return
	}

	// The browser only supplies its user agent on a plain GET; the remaining
	// signal attributes arrive as query parameters from the admin page.
	viewerSignals := services.DeviceSignals{
		UserAgent:        c.GetHeader("User-Agent"),
		ScreenResolution: c.Query("screen_resolution"),
		Timezone:         c.Query("timezone"),
		Language:         c.Query("language"),
		Platform:         c.Query("platform"),
	}
	ip := clientIP(c)

	fingerprintService := services.NewFingerprintService()
	hash := fingerprintService.Derive(viewerSignals, ip)

	viewer := ViewerFingerprint{Fingerprint: hash, IsEligible: true}
	eligibilityService := services.NewEligibilityService(store)
	if result, err := eligibilityService.CheckEligibility(c.Request.Context(), hash, ip); err == nil {
		viewer.IsEligible = result.IsEligible
		viewer.Reason = result.Reason
	}

	response.SuccessJSON(c, gin.H{
		"records": records,
		"viewer":  viewer,
	})
}
