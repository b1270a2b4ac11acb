package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arvida42/skyflip/internal/domain"
)

// flipChannel is the Pub/Sub channel carrying flip candidates from the
// detector to streaming consumers.
const flipChannel = "flips"

// FlipBus implements domain.FlipBus using Redis Pub/Sub. Delivery is
// ephemeral: a subscriber only sees flips detected while it is connected,
// which is the right shape for a live feed.
type FlipBus struct {
	rdb *redis.Client
}

// NewFlipBus creates a FlipBus backed by the given Client.
func NewFlipBus(c *Client) *FlipBus {
	return &FlipBus{rdb: c.Underlying()}
}

// Publish serializes the candidate and fans it out to all subscribers.
func (fb *FlipBus) Publish(ctx context.Context, c domain.FlipCandidate) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis: marshal flip %s: %w", c.ListingID, err)
	}
	if err := fb.rdb.Publish(ctx, flipChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish flip %s: %w", c.ListingID, err)
	}
	return nil
}

// Subscribe returns a channel of serialized candidates and a cancel function
// that releases the subscription. The channel is closed when the
// subscription ends, whether by cancel or by context.
func (fb *FlipBus) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	pubsub := fb.rdb.Subscribe(ctx, flipChannel)

	// Receive the confirmation so a broken connection surfaces here instead
	// of as a silently empty channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis: subscribe flips: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan []byte, 128)

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

var _ domain.FlipBus = (*FlipBus)(nil)
