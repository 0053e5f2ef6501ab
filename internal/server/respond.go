package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pefman/mechduel/internal/game"
	"github.com/pefman/mechduel/internal/store"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": msg,
		"status":  code,
	})
}

// statusFor maps engine and storage errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case game.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errMatchNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, game.ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, game.ErrDecisionPending), errors.Is(err, game.ErrNoPendingDecision),
		errors.Is(err, game.ErrStageMismatch), errors.Is(err, game.ErrGameOver):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
