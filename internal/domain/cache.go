package domain

import (
	"context"
	"time"
)

// PriceCache caches base price estimates per canonical key with a bounded
// TTL. A missing key yields ErrNotFound; a cached zero is a valid "no data
// observed" sentinel, not a free item.
type PriceCache interface {
	SetPrice(ctx context.Context, itemName string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, itemName string) (float64, time.Time, error)
}

// NotifiedSet records listing ids that have already been emitted as flip
// candidates so a listing is never re-emitted on later sweeps.
type NotifiedSet interface {
	// MarkNotified records the id and reports whether it was newly
	// recorded (false means the listing was already notified).
	MarkNotified(ctx context.Context, listingID string) (bool, error)
}

// RateLimiter bounds request rates against a shared sliding-window budget,
// keyed so independent upstreams get independent budgets.
type RateLimiter interface {
	// Allow reports whether a request is permitted right now and counts it
	// if so.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Wait blocks until a request is permitted or the context is done.
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// FlipBus carries flip candidates from the detector to streaming consumers.
type FlipBus interface {
	Publish(ctx context.Context, c FlipCandidate) error
	// Subscribe returns a channel of serialized candidates and a cancel
	// function releasing the subscription.
	Subscribe(ctx context.Context) (<-chan []byte, func(), error)
}
