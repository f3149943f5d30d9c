package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rubricly/rubricly/internal/result"
)

// GET /rubrics/{rubricID}/results
func ListResultsHandler(store result.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rubricID := strings.TrimSpace(chi.URLParam(r, "rubricID"))
		if rubricID == "" {
			http.Error(w, "rubricID required", http.StatusBadRequest)
			return
		}
		out, err := store.List(r.Context(), rubricID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if out == nil {
			out = []result.GradedStudent{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// PATCH /results/{resultID} — review edits only (feedback fields).
func UpdateResultHandler(store result.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "resultID"))
		if id == "" {
			http.Error(w, "resultID required", http.StatusBadRequest)
			return
		}
		var p result.Patch
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := store.Update(r.Context(), id, p); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
