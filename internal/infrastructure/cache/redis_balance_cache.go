package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultBalanceTTL = 5 * time.Minute

// RedisBalanceCache implements BalanceCache using Redis
type RedisBalanceCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisBalanceCacheOption is a functional option for configuring the cache
type RedisBalanceCacheOption func(*RedisBalanceCache)

// WithTTL sets the entry lifetime
func WithTTL(ttl time.Duration) RedisBalanceCacheOption {
	return func(c *RedisBalanceCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger for the cache
func WithLogger(logger *zap.Logger) RedisBalanceCacheOption {
	return func(c *RedisBalanceCache) {
		c.logger = logger
	}
}

// NewRedisBalanceCache creates a new Redis-backed balance cache
func NewRedisBalanceCache(cfg *config.RedisConfig, opts ...RedisBalanceCacheOption) (*RedisBalanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisBalanceCache{
		client:     client,
		ownsClient: true,
		ttl:        defaultBalanceTTL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache, nil
}

// NewRedisBalanceCacheWithClient creates a cache with an existing Redis
// client. The caller retains ownership of the client.
func NewRedisBalanceCacheWithClient(client *redis.Client, opts ...RedisBalanceCacheOption) *RedisBalanceCache {
	cache := &RedisBalanceCache{
		client: client,
		ttl:    defaultBalanceTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func balanceKey(patientID uuid.UUID) string {
	return "billing:total_due:" + patientID.String()
}

// GetTotalDue returns the cached total and true on a hit
func (c *RedisBalanceCache) GetTotalDue(ctx context.Context, patientID uuid.UUID) (decimal.Decimal, bool, error) {
	data, err := c.client.Get(ctx, balanceKey(patientID)).Result()
	if err == redis.Nil {
		c.logger.Debug("balance cache miss", zap.String("patient_id", patientID.String()))
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("reading balance cache: %w", err)
	}

	total, err := decimal.NewFromString(data)
	if err != nil {
		// Treat a corrupt entry as a miss and drop it
		c.logger.Warn("corrupt balance cache entry",
			zap.String("patient_id", patientID.String()),
			zap.Error(err),
		)
		_ = c.client.Del(ctx, balanceKey(patientID)).Err()
		return decimal.Zero, false, nil
	}
	return total, true, nil
}

// SetTotalDue stores the total for a patient
func (c *RedisBalanceCache) SetTotalDue(ctx context.Context, patientID uuid.UUID, total decimal.Decimal) error {
	return c.client.Set(ctx, balanceKey(patientID), total.String(), c.ttl).Err()
}

// Invalidate evicts the cached total for a patient
func (c *RedisBalanceCache) Invalidate(ctx context.Context, patientID uuid.UUID) error {
	return c.client.Del(ctx, balanceKey(patientID)).Err()
}

// Close releases the Redis client if this cache owns it
func (c *RedisBalanceCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

var _ BalanceCache = (*RedisBalanceCache)(nil)
