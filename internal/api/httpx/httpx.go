package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bitbazaar/marketplace-backend/internal/apperr"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// WriteAppError maps the engine's error taxonomy onto the uniform
// envelope. Unknown errors render as a plain 500 without leaking detail.
func WriteAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, apperr.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, apperr.ErrInsufficientFunds):
		WriteError(w, http.StatusPaymentRequired, "insufficient_funds", err.Error(), nil)
	case errors.Is(err, apperr.ErrChainRPC):
		WriteError(w, http.StatusBadGateway, "chain_rpc_error", err.Error(), nil)
	case errors.Is(err, apperr.ErrUnresolved):
		WriteError(w, http.StatusAccepted, "confirmation_unresolved", err.Error(), nil)
	case errors.Is(err, apperr.ErrDatabase):
		WriteError(w, http.StatusInternalServerError, "database_error", "storage failure", nil)
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
