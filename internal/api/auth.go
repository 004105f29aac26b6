package api

import (
	"net/http"

	"github.com/sublarr/subctl/internal/apierr"
	"github.com/sublarr/subctl/internal/auth"
	"github.com/sublarr/subctl/internal/log"
)

// authMiddleware enforces bearer-token authentication against s.Settings's
// configured API token, fail-closed unless AuthAnonymous is set (§6: every
// route in the §6 surface is gated the same way).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.Settings.APIToken

		if token == "" {
			if s.Settings.AuthAnonymous {
				next.ServeHTTP(w, r)
				return
			}
			log.FromContext(r.Context()).Error().Str("event", "auth.fail_closed").Msg("no API token configured and auth_anonymous is not set; denying access")
			apierr.Respond(w, r, apierr.ErrUnauthorized)
			return
		}

		if !auth.AuthorizeRequest(r, token, false) {
			apierr.Respond(w, r, apierr.ErrUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
