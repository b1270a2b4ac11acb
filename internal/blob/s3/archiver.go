package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/arvida42/skyflip/internal/domain"
)

// archiveBatchLimit bounds how many rows one archival run moves, so a large
// backlog drains over several sweeps instead of stalling one.
const archiveBatchLimit = 5000

// ArchiverConfig controls what the archiver moves to cold storage.
type ArchiverConfig struct {
	// Prefix is the object key prefix inside the bucket.
	Prefix string
	// PriceRetention is how long price points stay in the hot store. Zero
	// keeps history forever and archives listings only.
	PriceRetention time.Duration
}

// Archiver implements domain.Archiver: expired listings and aged price
// history are serialized to the blob store as JSON batches, then pruned
// from PostgreSQL. Archival failures leave the hot rows in place so no data
// is lost, only retried.
type Archiver struct {
	listings domain.ListingStore
	prices   domain.PriceStore
	blob     domain.BlobWriter
	cfg      ArchiverConfig
	logger   *slog.Logger
}

// NewArchiver creates an Archiver writing under cfg.Prefix.
func NewArchiver(
	listings domain.ListingStore,
	prices domain.PriceStore,
	blob domain.BlobWriter,
	cfg ArchiverConfig,
	logger *slog.Logger,
) *Archiver {
	if cfg.Prefix == "" {
		cfg.Prefix = "archive"
	}
	return &Archiver{
		listings: listings,
		prices:   prices,
		blob:     blob,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveExpired archives and prunes expired listings, then applies price
// history retention if configured. Each half runs independently: a failure
// in one does not block the other.
func (a *Archiver) ArchiveExpired(ctx context.Context) (domain.ArchiveResult, error) {
	now := time.Now().UTC()
	var result domain.ArchiveResult

	archived, pruned, listErr := a.archiveListings(ctx, now)
	result.ListingsArchived = archived
	result.ListingsPruned = pruned

	if a.cfg.PriceRetention > 0 {
		cutoff := now.Add(-a.cfg.PriceRetention)
		archivedPts, prunedPts, priceErr := a.archivePrices(ctx, now, cutoff)
		result.PricePointsArchived = archivedPts
		result.PricePointsPruned = prunedPts
		if priceErr != nil {
			return result, priceErr
		}
	}

	return result, listErr
}

func (a *Archiver) archiveListings(ctx context.Context, now time.Time) (int, int64, error) {
	expired, err := a.listings.ListExpired(ctx, now, archiveBatchLimit)
	if err != nil {
		return 0, 0, fmt.Errorf("s3blob: list expired listings: %w", err)
	}
	if len(expired) == 0 {
		return 0, 0, nil
	}

	key := fmt.Sprintf("%s/listings/%s.json", a.cfg.Prefix, now.Format("2006-01-02T15-04-05Z"))
	if err := a.putJSON(ctx, key, expired); err != nil {
		return 0, 0, err
	}

	// A full batch means more expired listings remain; prune only through the
	// last archived end time and leave the rest for the next run.
	pruneCutoff := now
	if len(expired) == archiveBatchLimit {
		pruneCutoff = expired[len(expired)-1].End
	}
	pruned, err := a.listings.PruneExpired(ctx, pruneCutoff)
	if err != nil {
		return len(expired), 0, fmt.Errorf("s3blob: prune expired listings: %w", err)
	}

	a.logger.InfoContext(ctx, "archived expired listings",
		slog.Int("archived", len(expired)),
		slog.Int64("pruned", pruned),
		slog.String("key", key),
	)
	return len(expired), pruned, nil
}

func (a *Archiver) archivePrices(ctx context.Context, now, cutoff time.Time) (int, int64, error) {
	points, err := a.prices.ListBefore(ctx, cutoff, archiveBatchLimit)
	if err != nil {
		return 0, 0, fmt.Errorf("s3blob: list aged prices: %w", err)
	}
	if len(points) == 0 {
		return 0, 0, nil
	}

	key := fmt.Sprintf("%s/prices/%s.json", a.cfg.Prefix, now.Format("2006-01-02T15-04-05Z"))
	if err := a.putJSON(ctx, key, points); err != nil {
		return 0, 0, err
	}

	// Delete only what was archived; points newer than the batch's last
	// sample stay for the next run.
	last := points[len(points)-1].SampledAt.Add(time.Millisecond)
	if last.After(cutoff) {
		last = cutoff
	}
	pruned, err := a.prices.DeleteBefore(ctx, last)
	if err != nil {
		return len(points), 0, fmt.Errorf("s3blob: prune aged prices: %w", err)
	}

	a.logger.InfoContext(ctx, "archived aged price history",
		slog.Int("archived", len(points)),
		slog.Int64("pruned", pruned),
		slog.String("key", key),
	)
	return len(points), pruned, nil
}

func (a *Archiver) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("s3blob: marshal archive %s: %w", key, err)
	}
	if err := a.blob.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("s3blob: upload archive %s: %w", key, err)
	}
	return nil
}

var _ domain.Archiver = (*Archiver)(nil)
