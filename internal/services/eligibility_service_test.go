package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
	"trialguard-api/internal/config"
	"trialguard-api/internal/database"
	"trialguard-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTrialTest(t *testing.T) *database.FingerprintStore {
	t.Helper()

	require.NoError(t, config.InitConfig())
	database.InitTestDB()
	t.Cleanup(database.CleanTestDB)

	return database.NewFingerprintStore(database.GetDB())
}

func seedConsumed(t *testing.T, store *database.FingerprintStore, hash, ip, userID string) {
	t.Helper()

	now := time.Now()
	applied, err := store.RecordUsage(context.Background(), &models.FingerprintRecord{
		FingerprintHash: hash,
		UserID:          userID,
		IPAddress:       ip,
		TrialUsed:       true,
		TrialStartDate:  &now,
	})
	require.NoError(t, err)
	require.True(t, applied)
}

func TestCheckEligibilityFreshFingerprint(t *testing.T) {
	store := setupTrialTest(t)
	svc := NewEligibilityService(store)

	result, err := svc.CheckEligibility(context.Background(), "fresh-hash", "203.0.113.5")

	assert.NoError(t, err)
	assert.True(t, result.IsEligible)
	assert.Empty(t, result.Reason)
}

func TestCheckEligibilityConsumedFingerprint(t *testing.T) {
	store := setupTrialTest(t)
	svc := NewEligibilityService(store)

	seedConsumed(t, store, "used-hash", "203.0.113.5", "u1")

	// The verdict must not depend on which network the repeat visit uses
	for _, ip := range []string{"203.0.113.5", "198.51.100.7", UnknownIP} {
		result, err := svc.CheckEligibility(context.Background(), "used-hash", ip)

		assert.NoError(t, err)
		assert.False(t, result.IsEligible)
		assert.Equal(t, ReasonFingerprintUsed, result.Reason)
	}
}

func TestCheckEligibilityNetworkThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		consumed  int
		eligible  bool
	}{
		{name: "below_threshold", threshold: 3, consumed: 2, eligible: true},
		{name: "at_threshold", threshold: 3, consumed: 3, eligible: false},
		{name: "above_threshold", threshold: 2, consumed: 4, eligible: false},
		{name: "higher_threshold_not_reached", threshold: 5, consumed: 4, eligible: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTrialTest(t)
			config.AppConfig.IPTrialThreshold = tt.threshold
			svc := NewEligibilityService(store)

			ip := "203.0.113.99"
			for i := 0; i < tt.consumed; i++ {
				seedConsumed(t, store, fmt.Sprintf("network-hash-%d", i), ip, fmt.Sprintf("u%d", i))
			}

			result, err := svc.CheckEligibility(context.Background(), "fresh-hash", ip)

			assert.NoError(t, err)
			assert.Equal(t, tt.eligible, result.IsEligible)
			if !tt.eligible {
				assert.Equal(t, ReasonNetworkAbuse, result.Reason)
			}
		})
	}
}

func TestCheckEligibilityLookbackWindow(t *testing.T) {
	store := setupTrialTest(t)
	config.AppConfig.IPTrialThreshold = 2
	config.AppConfig.IPLookbackDays = 30
	svc := NewEligibilityService(store)

	ip := "203.0.113.42"
	for i := 0; i < 3; i++ {
		seedConsumed(t, store, fmt.Sprintf("old-hash-%d", i), ip, "u1")
	}
	// Age the rows out of the lookback window
	cutoff := time.Now().AddDate(0, 0, -60)
	require.NoError(t, database.GetDB().Model(&models.FingerprintRecord{}).
		Where("ip_address = ?", ip).
		Update("created_at", cutoff).Error)

	result, err := svc.CheckEligibility(context.Background(), "fresh-hash", ip)

	assert.NoError(t, err)
	assert.True(t, result.IsEligible)
}

func TestCheckEligibilitySentinelIPSkipsNetworkCheck(t *testing.T) {
	store := setupTrialTest(t)
	config.AppConfig.IPTrialThreshold = 1
	svc := NewEligibilityService(store)

	// Many consumed trials share the sentinel; pooling them into one
	// "network" would lock out everyone behind a stripped proxy
	for i := 0; i < 5; i++ {
		seedConsumed(t, store, fmt.Sprintf("sentinel-hash-%d", i), UnknownIP, "u1")
	}

	result, err := svc.CheckEligibility(context.Background(), "fresh-hash", UnknownIP)

	assert.NoError(t, err)
	assert.True(t, result.IsEligible)
}

// failingStore simulates a record store outage
type failingStore struct{}

func (failingStore) FindByHash(ctx context.Context, hash string) (*models.FingerprintRecord, error) {
	return nil, errors.New("store unavailable")
}

func (failingStore) FindByIP(ctx context.Context, ip string, since time.Time) ([]models.FingerprintRecord, error) {
	return nil, errors.New("store unavailable")
}

func (failingStore) RecordUsage(ctx context.Context, record *models.FingerprintRecord) (bool, error) {
	return false, errors.New("store unavailable")
}

func TestCheckEligibilityFailsOpenOnStoreError(t *testing.T) {
	require.NoError(t, config.InitConfig())
	svc := NewEligibilityService(failingStore{})

	result, err := svc.CheckEligibility(context.Background(), "any-hash", "203.0.113.5")

	assert.Error(t, err)
	assert.True(t, result.IsEligible)
}
