package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bgmi-arena/arena-backend/middleware"
	"github.com/bgmi-arena/arena-backend/services"
	"github.com/bgmi-arena/arena-backend/storage"
	"github.com/go-chi/chi/v5"
)

const maxProofUploadBytes = 5 << 20 // 5MB screenshot limit

type WalletHandler struct {
	walletService *services.WalletService
	uploader      storage.FileUploader
}

// NewWalletHandler wires the wallet flows. uploader may be nil when no object
// storage is configured; proof uploads then return 503.
func NewWalletHandler(walletService *services.WalletService, uploader storage.FileUploader) *WalletHandler {
	return &WalletHandler{walletService: walletService, uploader: uploader}
}

// resolvePlayerID enforces that a player only touches their own wallet. An
// admin may act on any player's behalf.
func resolvePlayerID(r *http.Request, requested string) (string, error) {
	claims, err := middleware.ClaimsFromContext(r.Context())
	if err != nil {
		return "", err
	}
	if requested == "" || requested == claims.PlayerID {
		return claims.PlayerID, nil
	}
	if claims.Role == "admin" {
		return requested, nil
	}
	return "", services.ErrForbiddenOperation
}

func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PlayerID string `json:"playerId"`
		Amount   int64  `json:"amount"`
		ProofRef string `json:"proofReference"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, err := resolvePlayerID(r, input.PlayerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	transaction, err := h.walletService.Deposit(r.Context(), playerID, input.Amount, input.ProofRef)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"transaction": transaction}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PlayerID string `json:"playerId"`
		Amount   int64  `json:"amount"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, err := resolvePlayerID(r, input.PlayerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	transaction, err := h.walletService.Withdraw(r.Context(), playerID, input.Amount)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"transaction": transaction}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	playerID, err := resolvePlayerID(r, chi.URLParam(r, "playerID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	balance, err := h.walletService.Balance(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"playerId": playerID, "balance": balance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	playerID, err := resolvePlayerID(r, chi.URLParam(r, "playerID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			badRequestResponse(w, r, errors.New("invalid limit parameter"))
			return
		}
		limit = parsed
	}

	transactions, err := h.walletService.History(r.Context(), playerID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"transactions": transactions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadProof stores a deposit-proof screenshot and returns the key to submit
// as proofReference in a subsequent deposit request.
func (h *WalletHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		errorResponse(w, r, http.StatusServiceUnavailable, "UploadsDisabled")
		return
	}
	playerID, err := middleware.PlayerIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "AuthenticationRequired")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProofUploadBytes)
	if err := r.ParseMultipartForm(maxProofUploadBytes); err != nil {
		badRequestResponse(w, r, errors.New("invalid multipart form or file too large"))
		return
	}
	file, header, err := r.FormFile("proof")
	if err != nil {
		badRequestResponse(w, r, errors.New("missing proof file"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "image/png" && contentType != "image/jpeg" && contentType != "image/webp" {
		badRequestResponse(w, r, errors.New("proof must be a png, jpeg or webp image"))
		return
	}

	result, err := h.uploader.Upload(r.Context(), storage.ProofKey(playerID, header.Filename), contentType, file)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"proofReference": result.Key, "url": result.Location}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
