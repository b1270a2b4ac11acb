package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ListingCounter reports the size of the stored snapshot.
type ListingCounter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	listings ListingCounter
	logger   *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(listings ListingCounter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{listings: listings, logger: logger}
}

// HealthCheck responds with the server status and the current snapshot size.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.listings != nil {
		if n, err := h.listings.Count(r.Context()); err == nil {
			resp["listings"] = n
		} else {
			h.logger.WarnContext(r.Context(), "handler: listing count failed",
				slog.String("error", err.Error()),
			)
			resp["status"] = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
