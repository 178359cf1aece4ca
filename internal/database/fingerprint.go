package database

import (
	"context"
	"errors"
	"time"
	"trialguard-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FingerprintStore is the gorm-backed record store for fingerprint records.
// All methods are safe under concurrent callers; the conditional write in
// RecordUsage is atomic at row granularity.
type FingerprintStore struct {
	db *gorm.DB
}

// NewFingerprintStore creates a fingerprint store over the given database handle
func NewFingerprintStore(db *gorm.DB) *FingerprintStore {
	return &FingerprintStore{db: db}
}

// FindByHash looks up a record by fingerprint hash. Returns (nil, nil) when no
// record exists.
func (s *FingerprintStore) FindByHash(ctx context.Context, hash string) (*models.FingerprintRecord, error) {
	var record models.FingerprintRecord
	err := s.db.WithContext(ctx).Where("fingerprint_hash = ?", hash).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindByIP returns the records sharing an IP address created since the given time
func (s *FingerprintStore) FindByIP(ctx context.Context, ip string, since time.Time) ([]models.FingerprintRecord, error) {
	var records []models.FingerprintRecord
	err := s.db.WithContext(ctx).
		Where("ip_address = ? AND created_at >= ?", ip, since).
		Find(&records).Error
	return records, err
}

// RecordUsage marks a trial consumed for record's fingerprint hash with a single
// conditional write per step, never read-then-write:
//
//  1. insert the consumed row, yielding to the unique index on fingerprint_hash
//     if another caller got there first;
//  2. if the row already existed, flip trial_used conditioned on it still being
//     false at write time.
//
// Returns applied=false when the trial was already consumed for this hash, which
// callers treat as idempotent success. The stored user_id is never overwritten.
func (s *FingerprintStore) RecordUsage(ctx context.Context, record *models.FingerprintRecord) (bool, error) {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint_hash"}},
		DoNothing: true,
	}).Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Row exists; claim it only if the trial is still unconsumed.
	result = s.db.WithContext(ctx).Model(&models.FingerprintRecord{}).
		Where("fingerprint_hash = ? AND trial_used = ?", record.FingerprintHash, false).
		Updates(map[string]interface{}{
			"trial_used":       true,
			"trial_start_date": record.TrialStartDate,
			"user_id":          record.UserID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListRecords returns all fingerprint records, newest first. Used by the
// administrative read path only.
func (s *FingerprintStore) ListRecords(ctx context.Context) ([]models.FingerprintRecord, error) {
	var records []models.FingerprintRecord
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&records).Error
	return records, err
}
