// Package handler contains the HTTP handlers of the read-only API facade.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/arvida42/skyflip/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseListingFilter extracts flip query parameters from the query string.
// Defaults: limit=50 (max 500), everything else unset.
func parseListingFilter(r *http.Request) domain.ListingFilter {
	q := r.URL.Query()

	f := domain.ListingFilter{Limit: 50}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if f.Limit > 500 {
		f.Limit = 500
	}

	if v := q.Get("budget"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			f.MaxPrice = n
		}
	}
	if v := q.Get("min_profit"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			f.MinProfit = n
		}
	}
	if v := q.Get("bin"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.BinOnly = b
		}
	}

	return f
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
