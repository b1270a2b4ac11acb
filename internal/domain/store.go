package domain

import (
	"context"
	"time"
)

// ListingStore persists the current listing snapshot.
type ListingStore interface {
	// UpsertBatch applies all listings of one fetched page as a single
	// atomic batch: either every row lands or none do. Conflicting ids
	// update only the mutable fields (price, bids, end time, derived
	// values); history is never duplicated.
	UpsertBatch(ctx context.Context, listings []Listing) error
	GetByID(ctx context.Context, id string) (Listing, error)
	// ListActive returns non-expired listings matching the filter, cheapest
	// relative to estimated value first.
	ListActive(ctx context.Context, now time.Time, f ListingFilter) ([]Listing, error)
	// ListExpired returns listings whose end time precedes cutoff, for
	// archival ahead of pruning.
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]Listing, error)
	// PruneExpired deletes listings whose end time precedes cutoff and
	// returns the number removed. Active listings are never touched.
	PruneExpired(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// PriceStore persists the append-only price history.
type PriceStore interface {
	AppendBatch(ctx context.Context, points []PricePoint) error
	Latest(ctx context.Context, itemName string) (PricePoint, error)
	History(ctx context.Context, itemName string, since time.Time, limit int) ([]PricePoint, error)
	// ListBefore returns points sampled before cutoff, for archival.
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]PricePoint, error)
	// DeleteBefore removes points sampled before cutoff (retention pruning
	// only; refresh never deletes).
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
