package domain

import (
	"context"
	"io"
)

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves expired listings and aged price history to cold storage
// before they are pruned from the hot store.
type Archiver interface {
	ArchiveExpired(ctx context.Context) (ArchiveResult, error)
}

// ArchiveResult summarizes one archival run.
type ArchiveResult struct {
	ListingsArchived    int
	PricePointsArchived int
	ListingsPruned      int64
	PricePointsPruned   int64
}
