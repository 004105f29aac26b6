package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sublarr/subctl/internal/apierr"
	"github.com/sublarr/subctl/internal/providers"
)

func (s *Server) handleProvidersList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": s.Providers.List()})
}

func (s *Server) handleProviderResetBreaker(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := s.Providers.Get(name); !ok {
		apierr.Respond(w, r, apierr.ErrProviderNotFound)
		return
	}
	s.Providers.ResetBreaker(name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePluginsReload(w http.ResponseWriter, r *http.Request) {
	builtin := make(map[string]bool)
	for _, snap := range s.Providers.List() {
		if snap.Metadata.BuiltIn {
			builtin[snap.Metadata.Name] = true
		}
	}

	loaded, loadErrs := providers.LoadDir(s.Settings.PluginsDir, builtin)
	s.Providers.ReplacePlugins(loaded)

	resp := map[string]any{"loaded": len(loaded)}
	if len(loadErrs) > 0 {
		errs := make([]string, len(loadErrs))
		for i, e := range loadErrs {
			errs[i] = e.Error()
		}
		resp["errors"] = errs
	}
	writeJSON(w, http.StatusOK, resp)
}
