package domain

import "time"

// FlipCandidate is an underpriced listing ready for delivery to consumers.
// ID is a per-event identifier; ListingID is the upstream auction id.
type FlipCandidate struct {
	ID             string    `json:"id"`
	ListingID      string    `json:"listing_id"`
	DisplayName    string    `json:"display_name"`
	Price          float64   `json:"price"`
	EstimatedValue float64   `json:"estimated_value"`
	Profit         float64   `json:"profit"`
	BuyItNow       bool      `json:"bin"`
	Remaining      string    `json:"remaining"`
	EndsAt         time.Time `json:"ends_at"`
	IconURL        string    `json:"icon_url"`
}
