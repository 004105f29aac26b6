package api

import (
	"net/http"

	"github.com/sublarr/subctl/internal/config"
)

// handleSettingsRead returns the current Settings with secrets masked
// (§9: "Secrets ... never returned by the settings-read endpoint").
func (s *Server) handleSettingsRead(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.Redact(s.Settings))
}
