package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"trialguard-api/internal/config"
	"trialguard-api/internal/database"
	"trialguard-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordUsageCreatesConsumedRecord(t *testing.T) {
	store := setupTrialTest(t)
	svc := NewTrialService(store)

	signals := DeviceSignals{
		UserAgent:        "UA-A",
		ScreenResolution: "1920x1080",
		Timezone:         "UTC",
	}
	err := svc.RecordUsage(context.Background(), "record-hash", "203.0.113.5", "u1", signals)
	require.NoError(t, err)

	record, err := store.FindByHash(context.Background(), "record-hash")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.TrialUsed)
	assert.Equal(t, "u1", record.UserID)
	assert.Equal(t, "203.0.113.5", record.IPAddress)
	assert.Equal(t, "UA-A", record.UserAgent)
	require.NotNil(t, record.TrialStartDate)
}

func TestRecordUsageIdempotentFirstWriterWins(t *testing.T) {
	store := setupTrialTest(t)
	svc := NewTrialService(store)

	signals := DeviceSignals{UserAgent: "UA-A", ScreenResolution: "1920x1080", Timezone: "UTC"}

	require.NoError(t, svc.RecordUsage(context.Background(), "dup-hash", "203.0.113.5", "u1", signals))

	// A duplicate by another account succeeds but must not overwrite
	require.NoError(t, svc.RecordUsage(context.Background(), "dup-hash", "203.0.113.5", "u2", signals))

	record, err := store.FindByHash(context.Background(), "dup-hash")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "u1", record.UserID)
	assert.True(t, record.TrialUsed)

	var count int64
	require.NoError(t, database.GetDB().Model(&models.FingerprintRecord{}).
		Where("fingerprint_hash = ?", "dup-hash").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordUsageTransitionsExistingUnusedRecord(t *testing.T) {
	store := setupTrialTest(t)
	svc := NewTrialService(store)

	// A pre-existing unconsumed row is claimed, not duplicated
	require.NoError(t, database.GetDB().Create(&models.FingerprintRecord{
		FingerprintHash: "claim-hash",
		IPAddress:       "203.0.113.5",
		TrialUsed:       false,
	}).Error)

	signals := DeviceSignals{UserAgent: "UA-A", ScreenResolution: "1920x1080", Timezone: "UTC"}
	require.NoError(t, svc.RecordUsage(context.Background(), "claim-hash", "203.0.113.5", "u1", signals))

	record, err := store.FindByHash(context.Background(), "claim-hash")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.TrialUsed)
	assert.Equal(t, "u1", record.UserID)
	require.NotNil(t, record.TrialStartDate)
}

func TestRecordUsageConcurrentFirstTimeCalls(t *testing.T) {
	store := setupTrialTest(t)
	svc := NewTrialService(store)

	const callers = 10
	signals := DeviceSignals{UserAgent: "UA-A", ScreenResolution: "1920x1080", Timezone: "UTC"}

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.RecordUsage(context.Background(), "race-hash", "203.0.113.5",
				fmt.Sprintf("u%d", i), signals)
		}(i)
	}
	wg.Wait()

	// Every caller observes success
	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}

	// Exactly one consumed row exists
	var count int64
	require.NoError(t, database.GetDB().Model(&models.FingerprintRecord{}).
		Where("fingerprint_hash = ?", "race-hash").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	record, err := store.FindByHash(context.Background(), "race-hash")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.TrialUsed)
	assert.NotEmpty(t, record.UserID)
}

func TestRecordUsageFailsClosedOnStoreError(t *testing.T) {
	require.NoError(t, config.InitConfig())
	svc := NewTrialService(failingStore{})

	signals := DeviceSignals{UserAgent: "UA-A", ScreenResolution: "1920x1080", Timezone: "UTC"}
	err := svc.RecordUsage(context.Background(), "down-hash", "203.0.113.5", "u1", signals)

	assert.Error(t, err)
}
