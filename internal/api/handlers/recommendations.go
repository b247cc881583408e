package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/minjae-dev/stockpulse/internal/store"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// RecommendationsHandler serves the persisted recommendation history.
type RecommendationsHandler struct {
	repo   *store.RecommendationRepository
	logger *logger.Logger
}

// NewRecommendationsHandler wires the handler. repo may be nil when the
// database is disabled.
func NewRecommendationsHandler(repo *store.RecommendationRepository, log *logger.Logger) *RecommendationsHandler {
	return &RecommendationsHandler{
		repo:   repo,
		logger: log.WithComponent("api"),
	}
}

// List returns recommendations filtered by symbol, since, min_rating and
// limit query parameters.
func (h *RecommendationsHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.repo == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "database is not configured"})
		return
	}

	filter := store.ListFilter{Limit: 50}

	q := r.URL.Query()
	if symbol := q.Get("symbol"); symbol != "" {
		filter.Symbol = symbol
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse("2006-01-02", since)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "since must be YYYY-MM-DD"})
			return
		}
		filter.Since = t
	}
	if minRating := q.Get("min_rating"); minRating != "" {
		v, err := strconv.ParseFloat(minRating, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "min_rating must be a number"})
			return
		}
		filter.MinRating = v
	}
	if limit := q.Get("limit"); limit != "" {
		v, err := strconv.ParseUint(limit, 10, 32)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = v
	}

	recs, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Recommendation query failed")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "query failed"})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":           len(recs),
		"recommendations": recs,
	})
}
