package api

import (
	"encoding/json"
	"net/http"

	"github.com/sublarr/subctl/internal/apierr"
	"github.com/sublarr/subctl/internal/providers"
)

func (s *Server) handlePresetsList(w http.ResponseWriter, r *http.Request) {
	if s.Presets == nil {
		writeJSON(w, http.StatusOK, map[string]any{"presets": []providers.Preset{}})
		return
	}
	presets, err := s.Presets.List(r.Context())
	if err != nil {
		apierr.Respond(w, r, apierr.ErrDBUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": presets})
}

func (s *Server) handlePresetsCreate(w http.ResponseWriter, r *http.Request) {
	if s.Presets == nil {
		apierr.Respond(w, r, apierr.ErrInternal, "no preset store configured")
		return
	}
	var p providers.Preset
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		apierr.Respond(w, r, apierr.ErrInvalidInput, err.Error())
		return
	}
	if p.Name == "" {
		apierr.Respond(w, r, apierr.ErrInvalidInput, "name is required")
		return
	}
	id, err := s.Presets.Create(r.Context(), p)
	if err != nil {
		apierr.Respond(w, r, apierr.ErrDBConstraint, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}
