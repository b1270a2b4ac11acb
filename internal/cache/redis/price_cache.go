package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arvida42/skyflip/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each canonical
// item key is stored as a hash at "price:{item}" with fields "price" and
// "ts" (Unix nanoseconds), expiring after the configured TTL so a stale
// estimate falls through to the history store.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client. A zero ttl
// disables expiry.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.Underlying(), ttl: ttl}
}

func priceKey(itemName string) string {
	return "price:" + itemName
}

// SetPrice stores the latest estimate for an item. A zero price is stored as
// written: it records "no sale observed", not a missing key.
func (pc *PriceCache) SetPrice(ctx context.Context, itemName string, price float64, ts time.Time) error {
	key := priceKey(itemName)
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}

	pipe := pc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	if pc.ttl > 0 {
		pipe.Expire(ctx, key, pc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", itemName, err)
	}
	return nil
}

// GetPrice retrieves the cached estimate for an item. It returns
// domain.ErrNotFound when the key is absent or expired.
func (pc *PriceCache) GetPrice(ctx context.Context, itemName string) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(itemName)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", itemName, err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s: %w", itemName, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", itemName, err)
	}

	return price, time.Unix(0, tsNano), nil
}

var _ domain.PriceCache = (*PriceCache)(nil)
