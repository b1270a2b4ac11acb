// Package oracle maintains base price estimates per canonical item key,
// backed by an append-only price history, a TTL cache, and the bazaar
// sell-order board for reference materials.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arvida42/skyflip/internal/domain"
)

// BazaarSource provides current sell-order prices for reference materials.
type BazaarSource interface {
	BazaarPrices(ctx context.Context, productIDs []string) (map[string]float64, error)
}

// ReferenceMaterials is the fixed set of crafting materials priced from the
// bazaar sell-order board instead of auction floors. Auction-floor data for
// these is too unstable to be usable, and they are exactly the inputs the
// valuation modifiers depend on.
var ReferenceMaterials = []string{
	"RECOMBOBULATOR_3000",
	"HOT_POTATO_BOOK",
	"FUMING_POTATO_BOOK",
	"WOOD_SINGULARITY",
}

// Oracle serves base prices from cache, falling back to the latest history
// row, and recomputes floor prices on designated sampling sweeps.
type Oracle struct {
	cache      domain.PriceCache
	store      domain.PriceStore
	bazaar     BazaarSource
	exclusions map[string]bool
	logger     *slog.Logger
}

// Config holds oracle construction parameters.
type Config struct {
	// Exclusions lists canonical keys whose price is held fixed and must
	// never be overwritten by observed data.
	Exclusions []string
}

// New creates an Oracle.
func New(cache domain.PriceCache, store domain.PriceStore, bazaar BazaarSource, cfg Config, logger *slog.Logger) *Oracle {
	excluded := make(map[string]bool, len(cfg.Exclusions))
	for _, key := range cfg.Exclusions {
		excluded[key] = true
	}
	return &Oracle{
		cache:      cache,
		store:      store,
		bazaar:     bazaar,
		exclusions: excluded,
		logger:     logger.With(slog.String("component", "oracle")),
	}
}

// BasePrice returns the current base price estimate for a canonical key:
// cached value if present, otherwise the latest history row, otherwise zero.
// Zero means "no data observed", never "free".
func (o *Oracle) BasePrice(ctx context.Context, itemName string) (float64, error) {
	price, _, err := o.cache.GetPrice(ctx, itemName)
	if err == nil {
		return price, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		// Degraded cache: fall through to the store rather than failing
		// valuation.
		o.logger.WarnContext(ctx, "price cache lookup failed",
			slog.String("item", itemName),
			slog.String("error", err.Error()),
		)
	}

	point, err := o.store.Latest(ctx, itemName)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("oracle: latest price %s: %w", itemName, err)
	}

	if err := o.cache.SetPrice(ctx, itemName, point.Price, point.SampledAt); err != nil {
		o.logger.WarnContext(ctx, "price cache set failed",
			slog.String("item", itemName),
			slog.String("error", err.Error()),
		)
	}
	return point.Price, nil
}

// Refresh recomputes floor prices from one sampling sweep's observations and
// appends one PricePoint per key. For every canonical key among buy-it-now,
// non-expired listings the floor is the minimum starting bid divided by
// stack count. Reference materials are priced from the bazaar sell-order
// board instead. Excluded keys are skipped entirely. History is append-only;
// prior rows are never touched.
func (o *Oracle) Refresh(ctx context.Context, listings []domain.Listing, now time.Time) error {
	floors := make(map[string]float64)
	for _, l := range listings {
		if !l.BuyItNow || l.Expired(now) || l.StackCount < 1 {
			continue
		}
		if o.exclusions[l.ItemName] {
			continue
		}
		unit := l.StartingBid / float64(l.StackCount)
		if cur, ok := floors[l.ItemName]; !ok || unit < cur {
			floors[l.ItemName] = unit
		}
	}

	// Reference materials bypass auction floors.
	for _, key := range ReferenceMaterials {
		delete(floors, key)
	}
	bazaarPrices, err := o.bazaar.BazaarPrices(ctx, ReferenceMaterials)
	if err != nil {
		// Auction floors are still worth persisting when the board is down.
		o.logger.ErrorContext(ctx, "bazaar fetch failed, reference materials skipped",
			slog.String("error", err.Error()),
		)
		bazaarPrices = nil
	}
	for key, price := range bazaarPrices {
		if o.exclusions[key] {
			continue
		}
		floors[key] = price
	}

	if len(floors) == 0 {
		return nil
	}

	points := make([]domain.PricePoint, 0, len(floors))
	for key, price := range floors {
		points = append(points, domain.PricePoint{
			ItemName:  key,
			Price:     price,
			SampledAt: now,
		})
	}

	if err := o.store.AppendBatch(ctx, points); err != nil {
		return fmt.Errorf("oracle: append price points: %w", err)
	}

	for key, price := range floors {
		if err := o.cache.SetPrice(ctx, key, price, now); err != nil {
			o.logger.WarnContext(ctx, "price cache set failed",
				slog.String("item", key),
				slog.String("error", err.Error()),
			)
		}
	}

	o.logger.InfoContext(ctx, "price refresh complete",
		slog.Int("keys", len(floors)),
	)
	return nil
}
