package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sublarr/subctl/internal/apierr"
	"github.com/sublarr/subctl/internal/wanted"
)

func (s *Server) handleWantedRefresh(w http.ResponseWriter, r *http.Request) {
	if s.Scanner == nil {
		apierr.Respond(w, r, apierr.ErrInternal, "no library scanner configured")
		return
	}
	res, err := s.Scanner.Scan(r.Context())
	if err != nil {
		apierr.Respond(w, r, apierr.ErrInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleWantedList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := wanted.ListFilter{
		Status:   wanted.Status(q.Get("status")),
		Kind:     q.Get("kind"),
		SeriesID: q.Get("series_id"),
		Path:     q.Get("path"),
		Limit:    queryInt(q, "limit", 50),
		Offset:   queryInt(q, "offset", 0),
	}
	items, err := s.Wanted.List(r.Context(), filter)
	if err != nil {
		apierr.Respond(w, r, apierr.ErrDBUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleWantedProcess(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apierr.Respond(w, r, apierr.ErrInvalidInput, "id must be an integer")
		return
	}
	item, err := s.Wanted.GetByID(r.Context(), id)
	if err != nil {
		apierr.Respond(w, r, apierr.ErrNotFound)
		return
	}
	if err := wanted.ValidateTransition(r.Context(), item.Status, wanted.EventProcess); err != nil {
		apierr.Respond(w, r, apierr.ErrInvalidState, err.Error())
		return
	}
	if s.Scheduler == nil {
		apierr.Respond(w, r, apierr.ErrInternal, "no scheduler configured")
		return
	}
	s.Scheduler.ProcessItem(r.Context(), item)
	w.WriteHeader(http.StatusAccepted)
}

func queryInt(q map[string][]string, key string, fallback int) int {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return fallback
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil {
		return fallback
	}
	return n
}
