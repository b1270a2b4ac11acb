package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/arvida42/skyflip/internal/domain"
)

// ListingReader defines what the flip handler needs from the listing store.
type ListingReader interface {
	ListActive(ctx context.Context, now time.Time, f domain.ListingFilter) ([]domain.Listing, error)
	GetByID(ctx context.Context, id string) (domain.Listing, error)
	Count(ctx context.Context) (int64, error)
}

// FlipHandler serves the flip browsing endpoint.
type FlipHandler struct {
	listings ListingReader
	logger   *slog.Logger
}

// NewFlipHandler creates a FlipHandler with the given store and logger.
func NewFlipHandler(listings ListingReader, logger *slog.Logger) *FlipHandler {
	return &FlipHandler{listings: listings, logger: logger}
}

// flipView is one listing in the flip list response. The raw item payload is
// deliberately omitted; clients browse margins, not NBT.
type flipView struct {
	ID             string    `json:"id"`
	ItemName       string    `json:"item_name"`
	Price          float64   `json:"price"`
	EstimatedValue float64   `json:"estimated_value"`
	Margin         float64   `json:"margin"`
	StackCount     int       `json:"stack_count"`
	BuyItNow       bool      `json:"bin"`
	EndsAt         time.Time `json:"ends_at"`
}

type listFlipsResponse struct {
	Flips []flipView `json:"flips"`
	Total int64      `json:"total"`
	Limit int        `json:"limit"`
}

// ListFlips returns active listings ordered by margin, best first.
// GET /api/flips?budget=5000000&min_profit=100000&bin=true&limit=50
func (h *FlipHandler) ListFlips(w http.ResponseWriter, r *http.Request) {
	filter := parseListingFilter(r)

	listings, err := h.listings.ListActive(r.Context(), time.Now(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list flips failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list flips")
		return
	}

	total, err := h.listings.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count listings failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count listings")
		return
	}

	views := make([]flipView, 0, len(listings))
	for _, l := range listings {
		views = append(views, flipView{
			ID:             l.ID,
			ItemName:       l.ItemName,
			Price:          l.Price,
			EstimatedValue: l.EstimatedValue,
			Margin:         l.EstimatedValue - l.Price,
			StackCount:     l.StackCount,
			BuyItNow:       l.BuyItNow,
			EndsAt:         l.End,
		})
	}

	writeJSON(w, http.StatusOK, listFlipsResponse{
		Flips: views,
		Total: total,
		Limit: filter.Limit,
	})
}

// flipDetailView is the single-listing response: the list view plus the bid
// state a buyer needs before acting on it.
type flipDetailView struct {
	flipView
	StartingBid float64   `json:"starting_bid"`
	HighestBid  float64   `json:"highest_bid"`
	ExtraValue  float64   `json:"extra_value"`
	Seller      string    `json:"seller"`
	StartedAt   time.Time `json:"started_at"`
}

// GetFlip returns one listing by auction id.
// GET /api/flips/{id}
func (h *FlipHandler) GetFlip(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "listing id is required")
		return
	}

	l, err := h.listings.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get listing failed",
			slog.String("listing", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load listing")
		return
	}

	writeJSON(w, http.StatusOK, flipDetailView{
		flipView: flipView{
			ID:             l.ID,
			ItemName:       l.ItemName,
			Price:          l.Price,
			EstimatedValue: l.EstimatedValue,
			Margin:         l.EstimatedValue - l.Price,
			StackCount:     l.StackCount,
			BuyItNow:       l.BuyItNow,
			EndsAt:         l.End,
		},
		StartingBid: l.StartingBid,
		HighestBid:  l.HighestBid,
		ExtraValue:  l.ExtraValue,
		Seller:      l.Seller,
		StartedAt:   l.Start,
	})
}
