package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sublarr/subctl/internal/apierr"
	"github.com/sublarr/subctl/internal/blacklist"
)

func (s *Server) handleBlacklistList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Blacklist.List(r.Context())
	if err != nil {
		apierr.Respond(w, r, apierr.ErrDBUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleBlacklistAdd(w http.ResponseWriter, r *http.Request) {
	var e blacklist.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		apierr.Respond(w, r, apierr.ErrInvalidInput, err.Error())
		return
	}
	if e.ProviderName == "" || e.ExternalID == "" {
		apierr.Respond(w, r, apierr.ErrInvalidInput, "provider_name and external_id are required")
		return
	}
	if err := s.Blacklist.Add(r.Context(), e); err != nil {
		apierr.Respond(w, r, apierr.ErrDBUnavailable)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleBlacklistRemove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apierr.Respond(w, r, apierr.ErrInvalidInput, "id must be an integer")
		return
	}
	if err := s.Blacklist.Remove(r.Context(), id); err != nil {
		apierr.Respond(w, r, apierr.ErrDBUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
