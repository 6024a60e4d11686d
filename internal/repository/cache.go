package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const (
	plansKey       = "billing:catalog:plans"
	refreshLockKey = "billing:catalog:refresh_lock"

	refreshLockExpiry = 15 * time.Second
)

// ErrRefreshBusy means another process holds the catalog refresh lock.
var ErrRefreshBusy = errors.New("catalog refresh already in progress")

// CatalogCache holds the processor plan catalog between requests. It is a
// cache only; the processor stays the source of record.
type CatalogCache interface {
	// GetPlans returns the cached plans and whether the entry was present.
	GetPlans(ctx context.Context) ([]domain.Plan, bool, error)
	SetPlans(ctx context.Context, plans []domain.Plan, ttl time.Duration) error
	// LockRefresh serialises catalog refreshes across processes. It returns
	// ErrRefreshBusy when another holder has the lock.
	LockRefresh(ctx context.Context) (unlock func(), err error)
	Ping(ctx context.Context) error
}

// RedisCatalogCache stores the catalog as a JSON blob in Redis.
type RedisCatalogCache struct {
	client *redis.Client
	rs     *redsync.Redsync
}

// NewRedisCatalogCache connects to the Redis instance at redisURL.
func NewRedisCatalogCache(ctx context.Context, redisURL string) (*RedisCatalogCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisCatalogCacheFromClient(client), nil
}

// NewRedisCatalogCacheFromClient wraps an existing client.
func NewRedisCatalogCacheFromClient(client *redis.Client) *RedisCatalogCache {
	return &RedisCatalogCache{client: client, rs: redsync.New(goredis.NewPool(client))}
}

func (r *RedisCatalogCache) GetPlans(ctx context.Context) ([]domain.Plan, bool, error) {
	raw, err := r.client.Get(ctx, plansKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // Cache miss
		}
		return nil, false, fmt.Errorf("failed to read plan cache: %w", err)
	}

	var plans []domain.Plan
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, false, fmt.Errorf("failed to decode plan cache: %w", err)
	}
	return plans, true, nil
}

func (r *RedisCatalogCache) SetPlans(ctx context.Context, plans []domain.Plan, ttl time.Duration) error {
	raw, err := json.Marshal(plans)
	if err != nil {
		return fmt.Errorf("failed to encode plan cache: %w", err)
	}
	if err := r.client.Set(ctx, plansKey, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write plan cache: %w", err)
	}
	return nil
}

func (r *RedisCatalogCache) LockRefresh(ctx context.Context) (func(), error) {
	mutex := r.rs.NewMutex(
		refreshLockKey,
		redsync.WithExpiry(refreshLockExpiry),
		redsync.WithTries(1), // one try; a busy lock means someone else is refreshing
	)
	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) {
			return nil, fmt.Errorf("%w: %v", ErrRefreshBusy, err)
		}
		return nil, fmt.Errorf("failed to take catalog refresh lock: %w", err)
	}
	return func() {
		_, _ = mutex.UnlockContext(context.WithoutCancel(ctx))
	}, nil
}

func (r *RedisCatalogCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCatalogCache) Close() error {
	return r.client.Close()
}

// MemoryCatalogCache is the in-process fallback used when no Redis is configured.
type MemoryCatalogCache struct {
	mu        sync.RWMutex
	plans     []domain.Plan
	expiresAt time.Time
	now       func() time.Time
}

func NewMemoryCatalogCache() *MemoryCatalogCache {
	return &MemoryCatalogCache{now: time.Now}
}

func (m *MemoryCatalogCache) GetPlans(ctx context.Context) ([]domain.Plan, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.plans == nil || !m.now().Before(m.expiresAt) {
		return nil, false, nil
	}
	plans := make([]domain.Plan, len(m.plans))
	copy(plans, m.plans)
	return plans, true, nil
}

func (m *MemoryCatalogCache) SetPlans(ctx context.Context, plans []domain.Plan, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans = append([]domain.Plan{}, plans...)
	m.expiresAt = m.now().Add(ttl)
	return nil
}

// LockRefresh is a no-op; in-process refreshes are already collapsed by
// the service.
func (m *MemoryCatalogCache) LockRefresh(ctx context.Context) (func(), error) {
	return func() {}, nil
}

func (m *MemoryCatalogCache) Ping(ctx context.Context) error {
	return nil
}
