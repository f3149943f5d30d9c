package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rubricly/rubricly/internal/grading"
	"github.com/rubricly/rubricly/internal/session"
)

func sessionKey(r *http.Request) (session.Key, bool) {
	rubricID := strings.TrimSpace(chi.URLParam(r, "rubricID"))
	className := strings.TrimSpace(chi.URLParam(r, "className"))
	if rubricID == "" || className == "" {
		return session.Key{}, false
	}
	return session.Key{RubricID: rubricID, ClassName: className}, true
}

type sessionResponse struct {
	State    *session.State   `json:"state"`
	Warnings grading.Warnings `json:"warnings,omitempty"`
}

// POST /sessions  { "rubric_id": "...", "class_name": "...", "student_order": [...] }
func StartSessionHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RubricID     string   `json:"rubric_id"`
			ClassName    string   `json:"class_name"`
			StudentOrder []string `json:"student_order"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.RubricID == "" || req.ClassName == "" {
			http.Error(w, "rubric_id and class_name required", http.StatusBadRequest)
			return
		}
		st, err := eng.Start(r.Context(), req.RubricID, req.ClassName, req.StudentOrder)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sessionResponse{State: st})
	}
}

// GET /sessions/{rubricID}/{className} — resume; stale refs are pruned and
// reported in the warnings field.
func ResumeSessionHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := sessionKey(r)
		if !ok {
			http.Error(w, "rubricID and className required", http.StatusBadRequest)
			return
		}
		st, warns, err := eng.Resume(r.Context(), key)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{State: st, Warnings: warns})
	}
}

// POST /sessions/{rubricID}/{className}/advance — commit one cell edit.
func AdvanceSessionHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := sessionKey(r)
		if !ok {
			http.Error(w, "rubricID and className required", http.StatusBadRequest)
			return
		}
		var edit session.CellEdit
		if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		st, err := eng.Advance(r.Context(), key, edit)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{State: st})
	}
}

// DELETE /sessions/{rubricID}/{className} — abort without finalizing.
func CancelSessionHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := sessionKey(r)
		if !ok {
			http.Error(w, "rubricID and className required", http.StatusBadRequest)
			return
		}
		if err := eng.Cancel(r.Context(), key); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type finalizeResponse struct {
	Created  interface{}       `json:"created"`
	Failed   map[string]string `json:"failed,omitempty"`
	Warnings grading.Warnings  `json:"warnings,omitempty"`
}

// POST /sessions/{rubricID}/{className}/finalize — score and persist every
// student; partial store failures come back per student.
func FinalizeSessionHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := sessionKey(r)
		if !ok {
			http.Error(w, "rubricID and className required", http.StatusBadRequest)
			return
		}
		rep, err := eng.Finalize(r.Context(), key)
		if err != nil {
			writeErr(w, err)
			return
		}
		resp := finalizeResponse{Created: rep.Created, Warnings: rep.Warnings}
		if len(rep.Failed) > 0 {
			resp.Failed = make(map[string]string, len(rep.Failed))
			for name, ferr := range rep.Failed {
				resp.Failed[name] = ferr.Error()
			}
			writeJSON(w, http.StatusMultiStatus, resp)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
