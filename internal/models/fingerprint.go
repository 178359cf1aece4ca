package models

import (
	"time"
)

// FingerprintRecord ties a device/network signature to trial consumption.
// One row per fingerprint hash; trial_used only ever transitions false -> true.
// Fields are declared flat (no BaseModel) so created_at can join the
// (ip_address, created_at) lookup index.
type FingerprintRecord struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	FingerprintHash string `json:"fingerprint_hash" gorm:"uniqueIndex;not null;size:64"`
	UserID          string `json:"user_id" gorm:"size:100"` // account that consumed the trial; empty until consumption

	// Captured client/network attributes, informational
	IPAddress        string `json:"ip_address" gorm:"index:idx_fingerprint_ip_created,priority:1;size:45"`
	UserAgent        string `json:"user_agent" gorm:"type:text"`
	ScreenResolution string `json:"screen_resolution" gorm:"size:20"`
	Timezone         string `json:"timezone" gorm:"size:64"`

	TrialUsed      bool       `json:"trial_used" gorm:"default:false"`
	TrialStartDate *time.Time `json:"trial_start_date"` // set exactly when trial_used flips to true

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index:idx_fingerprint_ip_created,priority:2"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// UserSession is a session token issued by the upstream account system.
// The record endpoint validates against it; this service never authenticates
// credentials itself.
type UserSession struct {
	BaseModel

	Token     string    `json:"token" gorm:"uniqueIndex;not null;size:64"`
	UserID    string    `json:"user_id" gorm:"not null;index;size:100"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}
