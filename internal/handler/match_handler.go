package handler

import (
	"net/http"

	"github.com/freeeve/courtside/internal/model"
	"github.com/freeeve/courtside/internal/service"
)

// MatchHandler handles match setup and listing endpoints.
type MatchHandler struct {
	matchSvc *service.MatchService
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(matchSvc *service.MatchService) *MatchHandler {
	return &MatchHandler{matchSvc: matchSvc}
}

// CreateMatch handles POST /api/v1/matches
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sport   string `json:"sport"`
		PlayerA string `json:"player_a"`
		PlayerB string `json:"player_b"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.matchSvc.CreateMatch(r.Context(), req.Sport, req.PlayerA, req.PlayerB)
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ListMatches handles GET /api/v1/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	status := model.MatchStatus(r.URL.Query().Get("status"))
	matches, err := h.matchSvc.ListMatches(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	if matches == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// GetMatch handles GET /api/v1/matches/{id}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	m, err := h.matchSvc.GetMatch(r.Context(), matchID)
	if err != nil {
		writeServiceError(w, r, matchID, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
