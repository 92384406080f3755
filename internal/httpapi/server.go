// Package httpapi serves the annotation store over HTTP and provides the
// matching typed client. Request and response bodies mirror the annotation
// data model directly; errors carry a stable code and message.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/klaboworld/marginalia/internal/annotation"
	"github.com/klaboworld/marginalia/internal/store"
)

// Error codes returned in API error bodies.
const (
	CodeNotFound   = "ANNOTATION_NOT_FOUND"
	CodeValidation = "VALIDATION_FAILED"
	CodeBadRequest = "BAD_REQUEST"
	CodeInternal   = "INTERNAL"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error apiError `json:"error"`
}

// Server exposes a Store over HTTP.
type Server struct {
	store *store.Store
	log   zerolog.Logger
}

// NewServer wraps a store.
func NewServer(st *store.Store, log zerolog.Logger) *Server {
	return &Server{store: st, log: log}
}

// Handler returns the API routes with request logging attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/annotations", s.handleList)
	mux.HandleFunc("POST /api/annotations", s.handleCreate)
	mux.HandleFunc("GET /api/annotations/{id}", s.handleGet)
	mux.HandleFunc("PATCH /api/annotations/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/annotations/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/annotations/{id}/resolve", s.handleResolve)
	return s.logged(mux)
}

func (s *Server) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{
		DraftSlug: q.Get("draftSlug"),
		RootsOnly: q.Get("rootsOnly") == "true",
	}
	if v := q.Get("status"); v != "" {
		st := annotation.Status(v)
		f.Status = &st
	}
	if v := q.Get("parentId"); v != "" {
		f.ParentID = &v
	}

	list, err := s.store.List(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []*annotation.Annotation{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in annotation.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{apiError{CodeBadRequest, "malformed request body: " + err.Error()}})
		return
	}
	created, err := s.store.Create(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.Get(r.PathValue("id"), r.URL.Query().Get("includeReplies") == "true")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var u annotation.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{apiError{CodeBadRequest, "malformed request body: " + err.Error()}})
		return
	}
	updated, err := s.store.Update(r.PathValue("id"), u)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.Delete(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.Resolve(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ve *annotation.ValidationError
	switch {
	case errors.Is(err, store.ErrAnnotationNotFound):
		s.writeJSON(w, http.StatusNotFound, errorBody{apiError{CodeNotFound, err.Error()}})
	case errors.As(err, &ve):
		s.writeJSON(w, http.StatusBadRequest, errorBody{apiError{CodeValidation, ve.Error()}})
	default:
		s.log.Error().Err(err).Msg("request failed")
		s.writeJSON(w, http.StatusInternalServerError, errorBody{apiError{CodeInternal, "internal error"}})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}
