package handlers

import (
	"net/http"

	"github.com/pongarena/tournament-engine/middleware"
	"github.com/pongarena/tournament-engine/services"
)

type ParticipantHandler struct {
	participantService services.ParticipantService
}

func NewParticipantHandler(ps services.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participantService: ps}
}

// JoinHandler handles POST /tournaments/{tournamentID}/join.
func (h *ParticipantHandler) JoinHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to join a tournament")
		return
	}

	participant, err := h.participantService.Join(r.Context(), tournamentID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// LeaveHandler handles DELETE /tournaments/{tournamentID}/leave.
func (h *ParticipantHandler) LeaveHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to leave a tournament")
		return
	}

	if err := h.participantService.Leave(r.Context(), tournamentID, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
