package handler

import (
	"net/http"

	"github.com/freeeve/courtside/internal/logger"
	"github.com/freeeve/courtside/internal/model"
	"github.com/freeeve/courtside/internal/realtime"
	"github.com/freeeve/courtside/internal/service"
)

// StateHandler serves the live state of a match.
type StateHandler struct {
	stateSvc *service.StateService
	rt       *realtime.Service
}

// NewStateHandler creates a StateHandler. Writes go through rt so that every
// subscriber sees the new state as soon as the patch is stored.
func NewStateHandler(stateSvc *service.StateService, rt *realtime.Service) *StateHandler {
	return &StateHandler{stateSvc: stateSvc, rt: rt}
}

// GetState handles GET /api/v1/matches/{id}/state
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	st, err := h.stateSvc.FetchState(r.Context(), matchID)
	if err != nil {
		writeServiceError(w, r, matchID, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// PatchState handles PATCH /api/v1/matches/{id}/state
func (h *StateHandler) PatchState(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	var patch model.StatePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := h.rt.PushUpdate(r.Context(), matchID, patch)
	if err != nil {
		writeServiceError(w, r, matchID, err)
		return
	}

	l := logger.ForMatch(r.Context(), matchID)
	l.Debug().Str("status", string(st.Status)).Msg("Match state patched")
	writeJSON(w, http.StatusOK, st)
}
