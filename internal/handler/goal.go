package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/templui/goalpulse/internal/ctxkeys"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/repository"
	"github.com/templui/goalpulse/internal/service"
)

type GoalHandler struct {
	goalService       *service.GoalService
	progressService   *service.ProgressService
	projectionService *service.ProjectionService
}

func NewGoalHandler(goalService *service.GoalService, progressService *service.ProgressService, projectionService *service.ProjectionService) *GoalHandler {
	return &GoalHandler{
		goalService:       goalService,
		progressService:   progressService,
		projectionService: projectionService,
	}
}

// List supports ?status=&platform=&goal_type=&challenge=true|false&sort=recent|progress|title|target_date
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.GoalFilter{
		UserID:   ctxkeys.UserID(r.Context()),
		Status:   q.Get("status"),
		Platform: q.Get("platform"),
		GoalType: q.Get("goal_type"),
		SortBy:   q.Get("sort"),
	}
	if v := q.Get("challenge"); v != "" {
		isChallenge, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: challenge must be true or false", service.ErrValidation))
			return
		}
		filter.IsChallenge = &isChallenge
	}

	goals, err := h.goalService.Goals(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if goals == nil {
		goals = []*model.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateGoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := h.goalService.Create(r.Context(), ctxkeys.UserID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	details, err := h.goalService.GoalWithDetails(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateGoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := h.goalService.Update(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.goalService.Delete(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type progressRequest struct {
	Value  *float64 `json:"value"`
	Source string   `json:"source"`
	Notes  string   `json:"notes"`
}

func (h *GoalHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Value == nil {
		writeError(w, r, fmt.Errorf("%w: value is required", service.ErrValidation))
		return
	}
	if req.Source == "" {
		req.Source = model.ProgressSourceManual
	}

	result, err := h.progressService.ApplyProgress(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"), *req.Value, req.Source, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *GoalHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.progressService.History(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*model.ProgressLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *GoalHandler) Projection(w http.ResponseWriter, r *http.Request) {
	projection, err := h.projectionService.Project(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projection)
}

// Analytics supports ?status=&platform=&goal_type=&timeframe=7d|30d|90d|365d
func (h *GoalHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	timeframe, err := service.ParseTimeframe(q.Get("timeframe"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	analytics, err := h.projectionService.Analytics(r.Context(), ctxkeys.UserID(r.Context()), service.AnalyticsFilter{
		Status:    q.Get("status"),
		Platform:  q.Get("platform"),
		GoalType:  q.Get("goal_type"),
		Timeframe: timeframe,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}
