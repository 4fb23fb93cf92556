package handlers

import (
	"errors"
	"net/http"

	"github.com/bgmi-arena/arena-backend/services"
	"github.com/go-chi/chi/v5"
)

// AdminHandler exposes the review queue: tournament lifecycle, room
// assignment, entrant rejection and deposit/withdrawal approval.
type AdminHandler struct {
	adminService      *services.AdminService
	tournamentService *services.TournamentService
}

func NewAdminHandler(adminService *services.AdminService, tournamentService *services.TournamentService) *AdminHandler {
	return &AdminHandler{
		adminService:      adminService,
		tournamentService: tournamentService,
	}
}

func (h *AdminHandler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetRoom handles PUT /admin/tournaments/{tournamentID}/room.
func (h *AdminHandler) SetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		RoomID       string `json:"roomId"`
		RoomPassword string `json:"roomPassword"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.adminService.SetRoom(r.Context(), id, input.RoomID, input.RoomPassword); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "room assigned"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CancelTournament closes the tournament and refunds every entrant.
func (h *AdminHandler) CancelTournament(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.adminService.CancelTournament(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "tournament canceled"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ListEntrants(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entrants, err := h.adminService.ListEntrants(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"entrants": entrants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RejectEntrant removes a registration and refunds the entry fee. Safe to
// call twice.
func (h *AdminHandler) RejectEntrant(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "entrantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.adminService.RejectEntrant(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "entrant rejected"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) transactionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "transactionID")
	if id == "" {
		badRequestResponse(w, r, errors.New("invalid transactionID parameter"))
		return "", false
	}
	return id, true
}

func (h *AdminHandler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	if err := h.adminService.ApproveDeposit(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "deposit approved"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	if err := h.adminService.RejectDeposit(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "deposit rejected"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	if err := h.adminService.ApproveWithdrawal(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "withdrawal approved"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	if err := h.adminService.RejectWithdrawal(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "withdrawal rejected"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) DeactivatePlayer(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		badRequestResponse(w, r, errors.New("invalid playerID parameter"))
		return
	}

	if err := h.adminService.DeactivatePlayer(r.Context(), playerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
