package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tipchain/native/bank"
	"tipchain/native/tipping"
)

var errBadRequest = errors.New("bad request")

type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return errBadRequest }

func badRequest(msg string) error { return &requestError{msg: msg} }

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, tipping.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, tipping.ErrCreatorNotFound), errors.Is(err, tipping.ErrAgentNotFound):
		return http.StatusNotFound
	case errors.Is(err, tipping.ErrHandleTaken), errors.Is(err, tipping.ErrAgentExists):
		return http.StatusConflict
	case errors.Is(err, tipping.ErrContractPaused):
		return http.StatusLocked
	case errors.Is(err, tipping.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, tipping.ErrAlreadyInitialized):
		return http.StatusConflict
	case errors.Is(err, bank.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case tipping.IsValidationError(err), errors.Is(err, bank.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (a *api) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "route", r.URL.Path, "error", err)
		message = http.StatusText(status)
	}
	writeJSONError(w, status, message)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
