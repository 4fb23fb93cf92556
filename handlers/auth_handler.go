package handlers

import (
	"net/http"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/bgmi-arena/arena-backend/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, token, err := h.authService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	player.PasswordHash = ""

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"player": player, "token": token}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := readJSON(w, r, &creds); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, token, err := h.authService.Login(r.Context(), creds)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	player.PasswordHash = ""

	if err := writeJSON(w, http.StatusOK, jsonResponse{"player": player, "token": token}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
