package handlers

import (
	"net/http"

	"github.com/bgmi-arena/arena-backend/middleware"
	"github.com/bgmi-arena/arena-backend/services"
)

type PlayerHandler struct {
	playerService *services.PlayerService
}

func NewPlayerHandler(playerService *services.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerService: playerService}
}

func (h *PlayerHandler) Me(w http.ResponseWriter, r *http.Request) {
	playerID, err := middleware.PlayerIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "AuthenticationRequired")
		return
	}

	player, err := h.playerService.Get(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MyMatches returns the caller's registrations with any room credentials the
// admin has assigned so far.
func (h *PlayerHandler) MyMatches(w http.ResponseWriter, r *http.Request) {
	playerID, err := middleware.PlayerIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "AuthenticationRequired")
		return
	}

	entrants, err := h.playerService.ListEntrants(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"entrants": entrants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
