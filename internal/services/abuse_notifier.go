package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"trialguard-api/internal/config"
	"trialguard-api/pkg/logging"
)

// AbuseNotifier pushes network-abuse events to the ops webhook
type AbuseNotifier struct {
	httpClient *http.Client
}

// NewAbuseNotifier creates a new abuse notifier
func NewAbuseNotifier() *AbuseNotifier {
	return &AbuseNotifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// AbusePayload is the event sent to the ops webhook
type AbusePayload struct {
	Event         string `json:"event"`          // "trial.network_abuse"
	IPAddress     string `json:"ip_address"`     // network that tripped the threshold
	ConsumedCount int    `json:"consumed_count"` // distinct consumed fingerprints observed
	Threshold     int    `json:"threshold"`
	Timestamp     string `json:"timestamp"` // ISO 8601 format
}

// NotifyNetworkAbuse reports that a network address tripped the trial
// threshold. Fire-and-forget: delivery happens in the background and never
// influences the eligibility verdict.
func (an *AbuseNotifier) NotifyNetworkAbuse(ip string, consumedCount int) {
	callbackURL := config.AppConfig.AbuseWebhookURL
	if callbackURL == "" {
		// No webhook configured, skip
		return
	}

	payload := AbusePayload{
		Event:         "trial.network_abuse",
		IPAddress:     ip,
		ConsumedCount: consumedCount,
		Threshold:     config.AppConfig.IPTrialThreshold,
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	go an.sendWithRetry(callbackURL, config.AppConfig.AbuseWebhookSecret, payload)
}

// sendWithRetry sends the webhook with retry mechanism
// Retry schedule: 1s, 5s, 30s (3 attempts total)
func (an *AbuseNotifier) sendWithRetry(callbackURL string, secret string, payload AbusePayload) {
	retryDelays := []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second}
	maxRetries := len(retryDelays)

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := an.sendWebhook(callbackURL, secret, payload)
		if err == nil {
			logging.Infof("Abuse notification sent - url: %s, ip: %s, attempt: %d",
				callbackURL, payload.IPAddress, attempt+1)
			return
		}

		logging.Errorf("Abuse notification failed - url: %s, ip: %s, attempt: %d, error: %v",
			callbackURL, payload.IPAddress, attempt+1, err)

		if attempt < maxRetries-1 {
			time.Sleep(retryDelays[attempt])
		}
	}

	logging.Errorf("Abuse notification failed after %d attempts - url: %s, ip: %s",
		maxRetries, callbackURL, payload.IPAddress)
}

// sendWebhook sends a single webhook request
func (an *AbuseNotifier) sendWebhook(callbackURL string, secret string, payload AbusePayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", callbackURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "TrialGuard-Webhook/1.0")

	if secret != "" {
		signature := an.generateSignature(jsonData, secret)
		req.Header.Set("X-TrialGuard-Signature", signature)
	}

	resp, err := an.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// generateSignature generates HMAC-SHA256 signature for the webhook payload
func (an *AbuseNotifier) generateSignature(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
