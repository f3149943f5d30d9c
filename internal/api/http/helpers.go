package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rubricly/rubricly/internal/result"
	"github.com/rubricly/rubricly/internal/rubric"
	"github.com/rubricly/rubricly/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps engine errors onto HTTP statuses. Store failures stay 500
// with the wrapped operation and key in the body so the caller can retry.
func writeErr(w http.ResponseWriter, err error) {
	var ve *rubric.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, session.ErrInvalidEdit):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, rubric.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, result.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrActiveSession),
		errors.Is(err, session.ErrNotCompleted),
		errors.Is(err, session.ErrCompleted):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
