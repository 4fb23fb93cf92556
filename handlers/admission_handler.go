package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bgmi-arena/arena-backend/middleware"
	"github.com/bgmi-arena/arena-backend/services"
)

type AdmissionHandler struct {
	admissionService *services.AdmissionService
	statusService    *services.StatusService
}

func NewAdmissionHandler(admissionService *services.AdmissionService, statusService *services.StatusService) *AdmissionHandler {
	return &AdmissionHandler{
		admissionService: admissionService,
		statusService:    statusService,
	}
}

// Join handles POST /join. The authenticated player can only join for
// themselves; an admin may join on a player's behalf.
func (h *AdmissionHandler) Join(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.ClaimsFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "AuthenticationRequired")
		return
	}

	var input struct {
		PlayerID     string `json:"playerId"`
		TournamentID int    `json:"tournamentId"`
		InGameName   string `json:"inGameName"`
		InGameID     string `json:"inGameId"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.PlayerID == "" {
		input.PlayerID = claims.PlayerID
	}
	if input.PlayerID != claims.PlayerID && claims.Role != "admin" {
		forbiddenResponse(w, r, "Forbidden")
		return
	}

	entrant, balance, err := h.admissionService.Join(r.Context(), services.JoinInput{
		PlayerID:     input.PlayerID,
		TournamentID: input.TournamentID,
		InGameName:   input.InGameName,
		InGameID:     input.InGameID,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"entrant": entrant, "balance": balance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Status handles GET /status?tournamentId=&playerId=. Public and cheap:
// tournament pages poll it every few seconds.
func (h *AdmissionHandler) Status(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := strconv.Atoi(r.URL.Query().Get("tournamentId"))
	if err != nil || tournamentID <= 0 {
		badRequestResponse(w, r, errors.New("invalid tournamentId parameter"))
		return
	}
	playerID := r.URL.Query().Get("playerId")

	status, err := h.statusService.Status(r.Context(), tournamentID, playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, status, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
