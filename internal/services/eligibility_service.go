package services

import (
	"context"
	"fmt"
	"time"
	"trialguard-api/internal/config"
	"trialguard-api/internal/models"
	"trialguard-api/pkg/logging"
)

// Eligibility denial reasons
const (
	ReasonFingerprintUsed = "fingerprint already used"
	ReasonNetworkAbuse    = "too many trials from this network"
)

// RecordStore is the persistence contract the trial services consume.
// Implementations must be safe under concurrent callers; RecordUsage must be
// atomic at row granularity.
type RecordStore interface {
	FindByHash(ctx context.Context, hash string) (*models.FingerprintRecord, error)
	FindByIP(ctx context.Context, ip string, since time.Time) ([]models.FingerprintRecord, error)
	RecordUsage(ctx context.Context, record *models.FingerprintRecord) (bool, error)
}

// EligibilityResult is the structured verdict of an eligibility check
type EligibilityResult struct {
	IsEligible bool   `json:"is_eligible"`
	Reason     string `json:"reason,omitempty"`
}

// EligibilityService answers whether a fingerprint may start a trial.
// Read-only: it never creates or mutates records.
type EligibilityService struct {
	store    RecordStore
	cache    *RedisService
	notifier *AbuseNotifier
}

// NewEligibilityService creates an eligibility service over the given store
func NewEligibilityService(store RecordStore) *EligibilityService {
	return &EligibilityService{
		store:    store,
		cache:    NewRedisService(),
		notifier: NewAbuseNotifier(),
	}
}

// CheckEligibility decides whether the fingerprint may start a trial.
//
// Store faults FAIL OPEN: the returned result grants eligibility and the error
// is surfaced for observability only. An infrastructure fault must never lock
// out a legitimate visitor.
func (s *EligibilityService) CheckEligibility(parent context.Context, hash, ip string) (EligibilityResult, error) {
	ctx, cancel := context.WithTimeout(parent, storeTimeout())
	defer cancel()

	// Fast path: recently consumed fingerprints are cached. Cache misses and
	// cache errors both fall through to the store.
	if s.cache.IsConsumed(ctx, hash) {
		return EligibilityResult{IsEligible: false, Reason: ReasonFingerprintUsed}, nil
	}

	record, err := s.store.FindByHash(ctx, hash)
	if err != nil {
		logging.Errorf("Fingerprint lookup failed, failing open - hash: %s, error: %v", hash, err)
		return EligibilityResult{IsEligible: true}, fmt.Errorf("fingerprint lookup: %w", err)
	}
	if record != nil && record.TrialUsed {
		s.cache.MarkConsumed(ctx, hash)
		return EligibilityResult{IsEligible: false, Reason: ReasonFingerprintUsed}, nil
	}

	// Secondary defense: count distinct consumed fingerprints behind the same
	// network address inside the lookback window. Defeats trivial single-device
	// signal spoofing. The sentinel address would pool unrelated visitors into
	// one network, so it is exempt.
	if ip == "" || ip == UnknownIP {
		return EligibilityResult{IsEligible: true}, nil
	}

	since := time.Now().AddDate(0, 0, -config.AppConfig.IPLookbackDays)
	records, err := s.store.FindByIP(ctx, ip, since)
	if err != nil {
		logging.Errorf("IP lookup failed, failing open - ip: %s, error: %v", ip, err)
		return EligibilityResult{IsEligible: true}, fmt.Errorf("ip lookup: %w", err)
	}

	consumed := make(map[string]struct{})
	for _, r := range records {
		if r.TrialUsed {
			consumed[r.FingerprintHash] = struct{}{}
		}
	}
	if len(consumed) >= config.AppConfig.IPTrialThreshold {
		s.notifier.NotifyNetworkAbuse(ip, len(consumed))
		return EligibilityResult{IsEligible: false, Reason: ReasonNetworkAbuse}, nil
	}

	return EligibilityResult{IsEligible: true}, nil
}

// storeTimeout bounds every record-store call
func storeTimeout() time.Duration {
	return time.Duration(config.AppConfig.StoreTimeoutSecs) * time.Second
}
