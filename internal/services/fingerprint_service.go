package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// UnknownIP is the sentinel used when no network address could be extracted
// from the request.
const UnknownIP = "unknown"

// DeviceSignals carries the stable client attributes that participate in
// fingerprinting. Volatile request data (timestamps, session identifiers)
// never appears here, so the same visitor hashes identically across requests.
type DeviceSignals struct {
	UserAgent        string `json:"user_agent"`
	ScreenResolution string `json:"screen_resolution"`
	Timezone         string `json:"timezone"`
	Language         string `json:"language"`
	Platform         string `json:"platform"`
}

// FingerprintService derives stable fingerprint hashes from client signals
type FingerprintService struct{}

// NewFingerprintService creates a new fingerprint service
func NewFingerprintService() *FingerprintService {
	return &FingerprintService{}
}

// Derive maps client signals and a network address to a stable hash.
// The signal set is canonicalized into a fixed field order, joined with the
// IP, and digested with SHA-256. Identical inputs always yield the identical
// hex digest.
func (s *FingerprintService) Derive(signals DeviceSignals, ipAddress string) string {
	ipAddress = strings.TrimSpace(ipAddress)
	if ipAddress == "" {
		ipAddress = UnknownIP
	}

	canonical := strings.Join([]string{
		strings.TrimSpace(signals.UserAgent),
		strings.TrimSpace(signals.ScreenResolution),
		strings.TrimSpace(signals.Timezone),
		strings.TrimSpace(signals.Language),
		strings.TrimSpace(signals.Platform),
		ipAddress,
	}, "|")

	digest := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(digest[:])
}
