package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rubricly/rubricly/internal/rubric"
)

// POST /rubrics — accepts a draft, validates it, stores the built rubric.
func CreateRubricHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var d rubric.Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		rb, err := d.Build()
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := store.Put(r.Context(), rb); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rb)
	}
}

// GET /rubrics/{rubricID}
func GetRubricHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "rubricID"))
		if id == "" {
			http.Error(w, "rubricID required", http.StatusBadRequest)
			return
		}
		rb, err := store.Get(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rb)
	}
}

// GET /rubrics
func ListRubricsHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := store.List(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		if out == nil {
			out = []rubric.Rubric{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DELETE /rubrics/{rubricID}
func DeleteRubricHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "rubricID"))
		if id == "" {
			http.Error(w, "rubricID required", http.StatusBadRequest)
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
