package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/bgmi-arena/arena-backend/middleware"
	"github.com/bgmi-arena/arena-backend/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func getIDFromURL(r *http.Request, param string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter", param)
	}
	return id, nil
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, code string) {
	if err := writeJSON(w, status, jsonResponse{"error": code}, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error", slog.String("path", r.URL.Path), slog.Any("error", err))
	errorResponse(w, r, http.StatusInternalServerError, "InternalError")
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

// mapServiceErrorToHTTP converts service-layer errors into responses with
// stable error codes the SPA renders as human messages. Business rejections
// keep their contract-mandated statuses: 409 for slot/duplicate conflicts,
// 402 for insufficient funds, 410 for a closed tournament.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrTournamentFull):
		errorResponse(w, r, http.StatusConflict, "TournamentFull")
	case errors.Is(err, services.ErrAlreadyJoined):
		errorResponse(w, r, http.StatusConflict, "AlreadyJoined")
	case errors.Is(err, services.ErrInsufficientFunds):
		errorResponse(w, r, http.StatusPaymentRequired, "InsufficientFunds")
	case errors.Is(err, services.ErrTournamentClosed):
		errorResponse(w, r, http.StatusGone, "TournamentClosed")
	case errors.Is(err, services.ErrUnknownAccount):
		errorResponse(w, r, http.StatusNotFound, "UnknownAccount")

	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrPlayerNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrEntrantNotFound),
		errors.Is(err, services.ErrTransactionNotFound):
		errorResponse(w, r, http.StatusNotFound, "NotFound")

	case errors.Is(err, services.ErrEmailTaken):
		errorResponse(w, r, http.StatusConflict, "EmailTaken")

	case errors.Is(err, services.ErrAlreadyReversed),
		errors.Is(err, services.ErrAlreadySettled),
		errors.Is(err, services.ErrNotReversible):
		errorResponse(w, r, http.StatusConflict, "TransactionStateConflict")

	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrTournamentNameRequired),
		errors.Is(err, services.ErrTournamentInvalidCapacity),
		errors.Is(err, services.ErrTournamentInvalidFee),
		errors.Is(err, services.ErrTournamentInvalidStart):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrInvalidCredentials):
		unauthorizedResponse(w, r, "InvalidCredentials")
	case errors.Is(err, middleware.ErrNoClaims):
		unauthorizedResponse(w, r, "AuthenticationRequired")
	case errors.Is(err, services.ErrAccountDisabled):
		forbiddenResponse(w, r, "AccountDisabled")
	case errors.Is(err, services.ErrForbiddenOperation):
		forbiddenResponse(w, r, "Forbidden")

	case errors.Is(err, services.ErrRetryable):
		errorResponse(w, r, http.StatusServiceUnavailable, "TemporarilyUnavailable")

	default:
		serverErrorResponse(w, r, err)
	}
}
