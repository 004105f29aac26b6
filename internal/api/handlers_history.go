package api

import (
	"net/http"

	"github.com/sublarr/subctl/internal/apierr"
)

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := queryInt(q, "limit", 50)
	offset := queryInt(q, "offset", 0)

	downloads, err := s.History.ListDownloads(r.Context(), limit, offset)
	if err != nil {
		apierr.Respond(w, r, apierr.ErrDBUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"downloads": downloads})
}
