package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/templui/goalpulse/internal/ctxkeys"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/service"
)

const defaultSuggestionMultiplier = 1.5

type MetricsHandler struct {
	syncService       *service.MetricSyncService
	defaultMultiplier float64
}

// NewMetricsHandler falls back to a 1.5 multiplier when defaultMultiplier is not positive.
func NewMetricsHandler(syncService *service.MetricSyncService, defaultMultiplier float64) *MetricsHandler {
	if defaultMultiplier <= 0 {
		defaultMultiplier = defaultSuggestionMultiplier
	}
	return &MetricsHandler{syncService: syncService, defaultMultiplier: defaultMultiplier}
}

type syncRequest struct {
	Snapshots []model.MetricSnapshot `json:"snapshots"`
}

// Sync applies snapshots from the body, or fetches them from the provider when the body is empty.
func (h *MetricsHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	var req syncRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	var report *service.SyncReport
	var err error
	if len(req.Snapshots) > 0 {
		report, err = h.syncService.SyncGoalsWithMetrics(r.Context(), userID, req.Snapshots)
	} else {
		report, err = h.syncService.SyncUser(r.Context(), userID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Suggestion supports ?goal_type=&platform=&multiplier=.
func (h *MetricsHandler) Suggestion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	platform := q.Get("platform")
	if platform == "" {
		platform = model.PlatformAll
	}
	multiplier := h.defaultMultiplier
	if v := q.Get("multiplier"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: multiplier must be a number", service.ErrValidation))
			return
		}
		multiplier = m
	}

	suggestion, err := h.syncService.SuggestGoalFromMetrics(r.Context(), ctxkeys.UserID(r.Context()), q.Get("goal_type"), platform, multiplier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}
