// Package pipeline drives the ingestion cycle: concurrent paginated sweeps
// of the auction snapshot, decoding and valuation of every listing, price
// refresh on sampling sweeps, pruning, and flip detection.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arvida42/skyflip/internal/codec"
	"github.com/arvida42/skyflip/internal/domain"
	"github.com/arvida42/skyflip/internal/feed"
	"github.com/arvida42/skyflip/internal/valuation"
)

// PageSource fetches one page of the upstream auction snapshot.
type PageSource interface {
	AuctionPage(ctx context.Context, page int) (feed.APIAuctionPage, error)
}

// Estimator values a decoded item.
type Estimator interface {
	Estimate(ctx context.Context, item domain.DecodedItem) valuation.Estimate
}

// Refresher recomputes floor prices from a sampling sweep's observations.
type Refresher interface {
	Refresh(ctx context.Context, listings []domain.Listing, now time.Time) error
}

// Scanner runs flip detection over the stored snapshot.
type Scanner interface {
	Scan(ctx context.Context, now time.Time) (int, error)
}

// Sweeper runs one full ingestion sweep at a time. It is not safe for
// concurrent use; RunLoop is the single driver.
type Sweeper struct {
	pages     PageSource
	listings  domain.ListingStore
	valuator  Estimator
	oracle    Refresher
	detector  Scanner
	archiver  domain.Archiver
	logger    *slog.Logger
	sampleCad int

	lastUpdated int64 // freshness marker of the previous sweep, epoch millis
	sweepCount  int
}

// NewSweeper creates a Sweeper. sampleCadence designates every Nth sweep as
// a full sampling sweep; values below 1 sample on every sweep.
func NewSweeper(
	pages PageSource,
	listings domain.ListingStore,
	valuator Estimator,
	oracle Refresher,
	detector Scanner,
	archiver domain.Archiver,
	sampleCadence int,
	logger *slog.Logger,
) *Sweeper {
	if sampleCadence < 1 {
		sampleCadence = 1
	}
	return &Sweeper{
		pages:     pages,
		listings:  listings,
		valuator:  valuator,
		oracle:    oracle,
		detector:  detector,
		archiver:  archiver,
		sampleCad: sampleCadence,
		logger:    logger.With(slog.String("component", "sweeper")),
	}
}

// Sweep executes one complete cycle: fetch all pages, decode and value every
// listing, persist the snapshot, refresh prices on sampling sweeps, prune
// expired listings, and scan for flips. An unchanged upstream freshness
// marker or a page-0 failure ends the sweep early as a no-op.
func (s *Sweeper) Sweep(ctx context.Context) error {
	start := time.Now()

	page0, err := s.pages.AuctionPage(ctx, 0)
	if err != nil {
		// Page 0 failure is a no-op sweep, not an error: the next tick
		// retries from scratch.
		s.logger.WarnContext(ctx, "page 0 fetch failed, skipping sweep",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if page0.LastUpdated == s.lastUpdated {
		s.logger.DebugContext(ctx, "upstream unchanged, skipping sweep",
			slog.Int64("last_updated", s.lastUpdated),
		)
		return nil
	}

	pages := s.fetchRemaining(ctx, page0)

	sampling := s.sweepCount%s.sampleCad == 0
	now := time.Now()

	var all []domain.Listing
	for i, auctions := range pages {
		batch := s.ingestPage(ctx, auctions, now)
		if len(batch) == 0 {
			continue
		}
		if err := s.listings.UpsertBatch(ctx, batch); err != nil {
			// The batch aborts atomically; leave the freshness marker
			// untouched so the next tick retries the whole sweep.
			return fmt.Errorf("pipeline: upsert page %d: %w", i, err)
		}
		all = append(all, batch...)
	}

	if sampling {
		if err := s.oracle.Refresh(ctx, all, now); err != nil {
			s.logger.ErrorContext(ctx, "price refresh failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if result, err := s.archiver.ArchiveExpired(ctx); err != nil {
		s.logger.ErrorContext(ctx, "archive/prune failed",
			slog.String("error", err.Error()),
		)
	} else if result.ListingsPruned > 0 || result.PricePointsPruned > 0 {
		s.logger.InfoContext(ctx, "pruned expired data",
			slog.Int64("listings", result.ListingsPruned),
			slog.Int64("price_points", result.PricePointsPruned),
			slog.Int("listings_archived", result.ListingsArchived),
		)
	}

	flips, err := s.detector.Scan(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "flip scan failed",
			slog.String("error", err.Error()),
		)
	}

	s.lastUpdated = page0.LastUpdated
	s.sweepCount++

	s.logger.InfoContext(ctx, "sweep complete",
		slog.Int("pages", page0.TotalPages),
		slog.Int("listings", len(all)),
		slog.Bool("sampling", sampling),
		slog.Int("flips", flips),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// fetchRemaining fans out over pages 1..TotalPages-1 concurrently. Each page
// is independent: a failed page contributes nothing and never aborts the
// sweep. Page counts are small and bounded upstream, so the fan-out is
// bounded by the page count itself.
func (s *Sweeper) fetchRemaining(ctx context.Context, page0 feed.APIAuctionPage) [][]feed.APIAuction {
	pages := make([][]feed.APIAuction, page0.TotalPages)
	if page0.TotalPages > 0 {
		pages[0] = page0.Auctions
	} else {
		pages = [][]feed.APIAuction{page0.Auctions}
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for page := 1; page < page0.TotalPages; page++ {
		g.Go(func() error {
			resp, err := s.pages.AuctionPage(gctx, page)
			if err != nil {
				s.logger.WarnContext(gctx, "page fetch failed",
					slog.Int("page", page),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			pages[page] = resp.Auctions
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // page errors are swallowed above

	return pages
}

// ingestPage converts, decodes, and values one page's auctions. Listings
// with malformed payloads are skipped.
func (s *Sweeper) ingestPage(ctx context.Context, auctions []feed.APIAuction, now time.Time) []domain.Listing {
	batch := make([]domain.Listing, 0, len(auctions))
	for _, a := range auctions {
		listing, err := a.ToListing()
		if err != nil {
			s.logger.DebugContext(ctx, "bad listing payload encoding",
				slog.String("listing", a.UUID),
				slog.String("error", err.Error()),
			)
			continue
		}

		item, err := codec.Decode(listing.ItemBytes)
		if err != nil {
			s.logger.DebugContext(ctx, "undecodable item payload",
				slog.String("listing", listing.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		listing.ItemName = codec.CanonicalName(item)
		listing.StackCount = item.Count

		est := s.valuator.Estimate(ctx, item)
		listing.ExtraValue = est.Extra
		listing.EstimatedValue = est.Total
		listing.UpdatedAt = now

		batch = append(batch, listing)
	}
	return batch
}

// RunLoop runs sweeps on a fixed interval until the context is cancelled.
// Sweeps never overlap: the loop is the only driver and a tick that arrives
// while a sweep is still running is simply the next one processed.
func (s *Sweeper) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := s.Sweep(ctx); err != nil {
		s.logger.ErrorContext(ctx, "sweep failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "sweep loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// PruneOnly is the archiver used when cold storage is not configured: it
// prunes expired listings without archiving anything. Price history is kept
// in full.
type PruneOnly struct {
	listings domain.ListingStore
}

// NewPruneOnly creates a prune-only archiver.
func NewPruneOnly(listings domain.ListingStore) *PruneOnly {
	return &PruneOnly{listings: listings}
}

// ArchiveExpired deletes expired listings and reports the count.
func (p *PruneOnly) ArchiveExpired(ctx context.Context) (domain.ArchiveResult, error) {
	n, err := p.listings.PruneExpired(ctx, time.Now())
	if err != nil {
		return domain.ArchiveResult{}, err
	}
	return domain.ArchiveResult{ListingsPruned: n}, nil
}

var _ domain.Archiver = (*PruneOnly)(nil)
