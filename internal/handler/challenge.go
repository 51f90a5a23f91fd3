package handler

import (
	"net/http"

	"github.com/templui/goalpulse/internal/ctxkeys"
	"github.com/templui/goalpulse/internal/model"
	"github.com/templui/goalpulse/internal/service"
)

type ChallengeHandler struct {
	challengeService *service.ChallengeService
}

func NewChallengeHandler(challengeService *service.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService}
}

type challengeRequest struct {
	ParentGoalID string `json:"parent_goal_id"`
	Frequency    string `json:"frequency"`
}

func (h *ChallengeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Frequency == "" {
		req.Frequency = model.ChallengeFrequencyDaily
	}

	challenge, err := h.challengeService.GenerateChallenge(r.Context(), ctxkeys.UserID(r.Context()), req.ParentGoalID, req.Frequency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, challenge)
}

func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.challengeService.ActiveChallenges(r.Context(), ctxkeys.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if challenges == nil {
		challenges = []*model.Goal{}
	}
	writeJSON(w, http.StatusOK, challenges)
}
