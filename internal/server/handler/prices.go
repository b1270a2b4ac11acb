package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arvida42/skyflip/internal/domain"
)

// defaultHistoryWindow bounds the history endpoint when no "since" parameter
// is given.
const defaultHistoryWindow = 7 * 24 * time.Hour

// PriceReader defines what the price handler needs from the history store.
type PriceReader interface {
	Latest(ctx context.Context, itemName string) (domain.PricePoint, error)
	History(ctx context.Context, itemName string, since time.Time, limit int) ([]domain.PricePoint, error)
}

// PriceHandler serves price lookup and history endpoints. Incoming item
// names are normalized and run through the alias table so "Hyperion" and
// "HYPERION" resolve to the same canonical key.
type PriceHandler struct {
	prices  PriceReader
	aliases map[string]string
	logger  *slog.Logger
}

// NewPriceHandler creates a PriceHandler. aliases maps alternate names to
// canonical item keys; keys are matched after normalization.
func NewPriceHandler(prices PriceReader, aliases map[string]string, logger *slog.Logger) *PriceHandler {
	normalized := make(map[string]string, len(aliases))
	for k, v := range aliases {
		normalized[normalizeItem(k)] = v
	}
	return &PriceHandler{prices: prices, aliases: normalized, logger: logger}
}

// normalizeItem upper-cases and underscores an item name the way canonical
// keys are written.
func normalizeItem(name string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

func (h *PriceHandler) resolve(name string) string {
	key := normalizeItem(name)
	if canonical, ok := h.aliases[key]; ok {
		return canonical
	}
	return key
}

// GetPrice returns the latest sampled price for an item.
// GET /api/prices/{item}
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	item := pathParam(r, "item")
	if item == "" {
		writeError(w, http.StatusBadRequest, "missing item name")
		return
	}
	key := h.resolve(item)

	point, err := h.prices.Latest(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no price observed for item")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: latest price failed",
			slog.String("item", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to look up price")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"item_name":  point.ItemName,
		"price":      point.Price,
		"sampled_at": point.SampledAt,
	})
}

// GetHistory returns an item's sampled price history, oldest first.
// GET /api/prices/{item}/history?since=2026-08-01T00:00:00Z&limit=500
func (h *PriceHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	item := pathParam(r, "item")
	if item == "" {
		writeError(w, http.StatusBadRequest, "missing item name")
		return
	}
	key := h.resolve(item)

	since := time.Now().Add(-defaultHistoryWindow)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		since = t
	}

	limit := 500
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	points, err := h.prices.History(r.Context(), key, since, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: price history failed",
			slog.String("item", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"item_name": key,
		"since":     since,
		"points":    points,
	})
}
