package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arvida42/skyflip/internal/domain"
)

// Alerter delivers a flip candidate to the configured notification channels.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// DetectorConfig holds the flip-detection heuristics.
type DetectorConfig struct {
	// MinProfit is the minimum margin between discounted value and
	// effective price before a listing is worth flagging.
	MinProfit float64
	// OutbidBuffer inflates the highest bid of non-BIN listings to model
	// the minimum viable outbid. Must be > 1.
	OutbidBuffer float64
	// ModifierDiscount scales the modifier-derived portion of the value
	// when comparing against price: stacked modifiers rarely realize their
	// full standalone worth on resale. In (0, 1].
	ModifierDiscount float64
	// IconBaseURL is the prefix for candidate icon references.
	IconBaseURL string
}

// Detector cross-references the stored snapshot against estimated values
// and emits each profitable listing exactly once.
type Detector struct {
	listings domain.ListingStore
	notified domain.NotifiedSet
	bus      domain.FlipBus
	alerter  Alerter
	cfg      DetectorConfig
	logger   *slog.Logger
}

// NewDetector creates a Detector.
func NewDetector(
	listings domain.ListingStore,
	notified domain.NotifiedSet,
	bus domain.FlipBus,
	alerter Alerter,
	cfg DetectorConfig,
	logger *slog.Logger,
) *Detector {
	return &Detector{
		listings: listings,
		notified: notified,
		bus:      bus,
		alerter:  alerter,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "detector")),
	}
}

// Scan walks active, non-expired listings and emits every profitable one
// that has not been emitted before. Returns the number of candidates
// emitted.
func (d *Detector) Scan(ctx context.Context, now time.Time) (int, error) {
	active, err := d.listings.ListActive(ctx, now, domain.ListingFilter{})
	if err != nil {
		return 0, fmt.Errorf("pipeline: list active listings: %w", err)
	}

	emitted := 0
	for _, l := range active {
		effective := l.Price
		if !l.BuyItNow {
			// A fresh auction has no bids yet; the cheapest viable entry
			// is then the starting bid, not an outbid of zero.
			effective = math.Max(l.StartingBid, l.HighestBid*d.cfg.OutbidBuffer)
		}

		base := l.EstimatedValue - l.ExtraValue
		discounted := base + l.ExtraValue*d.cfg.ModifierDiscount
		threshold := discounted - d.cfg.MinProfit
		if effective >= threshold {
			continue
		}

		newly, err := d.notified.MarkNotified(ctx, l.ID)
		if err != nil {
			d.logger.WarnContext(ctx, "notified-set write failed",
				slog.String("listing", l.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !newly {
			continue
		}

		candidate := d.candidate(l, effective, discounted, now)
		if err := d.bus.Publish(ctx, candidate); err != nil {
			d.logger.WarnContext(ctx, "flip bus publish failed",
				slog.String("listing", l.ID),
				slog.String("error", err.Error()),
			)
		}

		title := fmt.Sprintf("Flip: %s", candidate.DisplayName)
		message := fmt.Sprintf(
			"Price %.0f, estimated value %.0f, profit %.0f. Ends in %s. Listing %s",
			candidate.Price, candidate.EstimatedValue, candidate.Profit,
			candidate.Remaining, candidate.ListingID,
		)
		if err := d.alerter.Notify(ctx, "flip_found", title, message); err != nil {
			d.logger.WarnContext(ctx, "flip notification failed",
				slog.String("listing", l.ID),
				slog.String("error", err.Error()),
			)
		}

		emitted++
	}
	return emitted, nil
}

// candidate builds the outbound payload. Profit is computed against the
// discounted value, so the advertised number is the conservative one; the
// estimated value shown is always the undiscounted total.
func (d *Detector) candidate(l domain.Listing, effective, discounted float64, now time.Time) domain.FlipCandidate {
	return domain.FlipCandidate{
		ID:             uuid.NewString(),
		ListingID:      l.ID,
		DisplayName:    displayName(l.ItemName),
		Price:          l.Price,
		EstimatedValue: l.EstimatedValue,
		Profit:         discounted - effective,
		BuyItNow:       l.BuyItNow,
		Remaining:      l.End.Sub(now).Round(time.Second).String(),
		EndsAt:         l.End,
		IconURL:        d.cfg.IconBaseURL + "/" + l.ItemName,
	}
}

// displayName turns a canonical key into a human-readable name, e.g.
// "LEGENDARY_WOLF_PET" becomes "Legendary Wolf Pet".
func displayName(key string) string {
	words := strings.Split(strings.ToLower(key), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
