package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arvida42/skyflip/internal/domain"
)

// NotifiedSet implements domain.NotifiedSet using per-listing keys written
// with SETNX. The TTL only has to outlive the listing's auction window, so
// keys clean themselves up after the flip is long gone.
type NotifiedSet struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewNotifiedSet creates a NotifiedSet backed by the given Client. A zero
// ttl disables expiry.
func NewNotifiedSet(c *Client, ttl time.Duration) *NotifiedSet {
	return &NotifiedSet{rdb: c.Underlying(), ttl: ttl}
}

func notifiedKey(listingID string) string {
	return "notified:" + listingID
}

// MarkNotified records the listing id and reports whether it was newly
// recorded. The SETNX write is the atomic gate that keeps emission
// exactly-once across sweeps.
func (ns *NotifiedSet) MarkNotified(ctx context.Context, listingID string) (bool, error) {
	newly, err := ns.rdb.SetNX(ctx, notifiedKey(listingID), 1, ns.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: mark notified %s: %w", listingID, err)
	}
	return newly, nil
}

var _ domain.NotifiedSet = (*NotifiedSet)(nil)
