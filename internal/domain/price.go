package domain

import "time"

// PricePoint is one append-only price observation for a canonical item key.
// Rows are never mutated; retention pruning is the only deletion path.
type PricePoint struct {
	ItemName  string
	Price     float64
	SampledAt time.Time
}
