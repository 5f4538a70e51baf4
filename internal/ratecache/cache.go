package ratecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrRateUnavailable is returned when no fresh reference rate exists
// for the currency. Entries expire with the TTL, so a stale rate is
// never served.
var ErrRateUnavailable = errors.New("reference rate unavailable")

const redisKeyPrefix = "ibr"

// Cache holds the forex partner's reference (IBR) rates in redis with
// a freshness TTL. It satisfies the pricing layer's RateSource.
type Cache struct {
	redis redis.Cmdable
	ttl   time.Duration
}

func New(redis redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{redis: redis, ttl: ttl}
}

// SetRate stores the latest reference rate for a currency. The TTL is
// the rate feed's freshness window.
func (c *Cache) SetRate(ctx context.Context, currency string, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("set rate %s: rate must be positive", currency)
	}
	if err := c.redis.Set(ctx, redisKey(currency), rate.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("set rate %s: %w", currency, err)
	}
	return nil
}

// ReferenceRate returns the cached rate, or ErrRateUnavailable when
// the entry is missing or expired.
func (c *Cache) ReferenceRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	val, err := c.redis.Get(ctx, redisKey(currency)).Result()
	if err != nil {
		if err == redis.Nil {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrRateUnavailable, currency)
		}
		zap.L().Warn("redis rate lookup failed", zap.String("currency", currency), zap.Error(err))
		return decimal.Zero, fmt.Errorf("lookup rate %s: %w", currency, err)
	}
	rate, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse cached rate %s: %w", currency, err)
	}
	return rate, nil
}

func redisKey(currency string) string {
	return fmt.Sprintf("%s:%s", redisKeyPrefix, currency)
}
