// Package search filters listings by name, category, condition and age.
package search

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/secondchance/backend/internal/repository"
)

// noMatchMessage is returned instead of an empty array when nothing
// matches. This is a documented quirk of the search API, not a general
// convention of the service.
const noMatchMessage = "No items found matching the criteria"

// SearchHandler handles HTTP requests for the search endpoint
type SearchHandler struct {
	repo   repository.ItemRepository
	logger *slog.Logger
}

// NewSearchHandler creates a new SearchHandler instance
func NewSearchHandler(repo repository.ItemRepository, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandler{
		repo:   repo,
		logger: logger,
	}
}

// RegisterRoutes registers the search route with the Chi router
func RegisterRoutes(r chi.Router, handler *SearchHandler) {
	r.Get("/secondchance/search", handler.Search)
}

// Search filters listings by query parameters. All present filters
// combine with AND; blank parameters are omitted from the predicate.
// GET /api/secondchance/search?name=&category=&condition=&age_years=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	filters := ParseFilters(r.URL.Query().Get("name"),
		r.URL.Query().Get("category"),
		r.URL.Query().Get("condition"),
		r.URL.Query().Get("age_years"))

	items, err := h.repo.Search(r.Context(), filters)
	if err != nil {
		h.logger.Error("search failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
			"code":  "INTERNAL_ERROR",
		})
		return
	}

	if len(items) == 0 {
		h.writeJSON(w, http.StatusOK, map[string]string{"message": noMatchMessage})
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

// ParseFilters builds the search predicate from raw query parameters.
// Blank values are dropped entirely; a non-numeric age_years is
// silently ignored rather than rejected.
func ParseFilters(name, category, condition, ageYears string) repository.SearchFilters {
	filters := repository.SearchFilters{
		Name:      strings.TrimSpace(name),
		Category:  strings.TrimSpace(category),
		Condition: strings.TrimSpace(condition),
	}

	if raw := strings.TrimSpace(ageYears); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filters.MaxAgeYears = &n
		}
	}

	return filters
}

// writeJSON writes a JSON response with the given status
func (h *SearchHandler) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
