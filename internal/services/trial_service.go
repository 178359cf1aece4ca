package services

import (
	"context"
	"fmt"
	"time"
	"trialguard-api/internal/models"
	"trialguard-api/pkg/logging"
)

// TrialService records trial consumption against fingerprint records
type TrialService struct {
	store RecordStore
	cache *RedisService
}

// NewTrialService creates a trial service over the given store
func NewTrialService(store RecordStore) *TrialService {
	return &TrialService{
		store: store,
		cache: NewRedisService(),
	}
}

// RecordUsage marks the trial consumed for the fingerprint, at most once.
// When the hash was never seen, a consumed row is created; when another call
// got there first the stored row (including its user_id) is left untouched and
// the duplicate still succeeds.
//
// Store faults FAIL CLOSED: the error is returned and no state changes. A
// trial grant is never fabricated on a write fault.
func (s *TrialService) RecordUsage(parent context.Context, hash, ip, userID string, signals DeviceSignals) error {
	ctx, cancel := context.WithTimeout(parent, storeTimeout())
	defer cancel()

	now := time.Now()
	record := &models.FingerprintRecord{
		FingerprintHash:  hash,
		UserID:           userID,
		IPAddress:        ip,
		UserAgent:        signals.UserAgent,
		ScreenResolution: signals.ScreenResolution,
		Timezone:         signals.Timezone,
		TrialUsed:        true,
		TrialStartDate:   &now,
	}

	applied, err := s.store.RecordUsage(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to record trial usage: %w", err)
	}
	if !applied {
		// Trial already consumed for this hash; duplicate and racing calls
		// resolve to idempotent success.
		logging.Infof("Trial already consumed - hash: %s, user: %s", hash, userID)
	}

	s.cache.MarkConsumed(ctx, hash)
	return nil
}
