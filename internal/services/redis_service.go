package services

import (
	"context"
	"fmt"
	"time"
	"trialguard-api/internal/config"
	"trialguard-api/internal/database"

	"github.com/redis/go-redis/v9"
)

// consumedCacheTTL bounds how long a consumed verdict may be served without
// consulting the store. The store stays authoritative.
const consumedCacheTTL = 15 * time.Minute

// RedisService provides the best-effort redis layer: a consumed-fingerprint
// cache and per-IP request rate limiting. Every method degrades to a no-op
// when redis is not configured or unavailable; verdict correctness never
// depends on it.
type RedisService struct {
	client *redis.Client
}

// NewRedisService creates a redis service over the shared client.
// The client may be nil when redis is not configured.
func NewRedisService() *RedisService {
	return &RedisService{client: database.GetRedis()}
}

// MarkConsumed caches a consumed fingerprint hash, best-effort
func (r *RedisService) MarkConsumed(ctx context.Context, hash string) {
	if r.client == nil {
		return
	}
	key := fmt.Sprintf("trial_consumed:%s", hash)
	// Errors are deliberately dropped; the cache is an optimization only.
	r.client.Set(ctx, key, "1", consumedCacheTTL)
}

// IsConsumed reports whether the fingerprint hash is cached as consumed.
// Redis errors read as "not cached" so the caller falls through to the store.
func (r *RedisService) IsConsumed(ctx context.Context, hash string) bool {
	if r.client == nil {
		return false
	}
	key := fmt.Sprintf("trial_consumed:%s", hash)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false
	}
	return exists > 0
}

// AllowCheckRequest applies a per-IP, per-minute counter to the check
// endpoint. Redis errors allow the request; rate limiting must never block a
// check the way a verdict would.
func (r *RedisService) AllowCheckRequest(ctx context.Context, ip string) bool {
	if r.client == nil || ip == "" || ip == UnknownIP {
		return true
	}

	key := fmt.Sprintf("check_rate:%s:%s", ip, time.Now().Format("200601021504"))
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		r.client.Expire(ctx, key, time.Minute)
	}
	return count <= int64(config.AppConfig.CheckRateLimitPerMin)
}
