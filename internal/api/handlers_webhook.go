package api

import (
	"encoding/json"
	"net/http"

	"github.com/sublarr/subctl/internal/apierr"
	"github.com/sublarr/subctl/internal/webhook"
)

// sonarrPayload/radarrPayload mirror the subset of each upstream media
// manager's webhook body this pipeline needs; both managers post a superset
// of fields we don't use.
type sonarrPayload struct {
	EventType string `json:"eventType"`
	Series    struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"series"`
	Episodes []struct {
		ID            string `json:"id"`
		SeasonNumber  int    `json:"seasonNumber"`
		EpisodeNumber int    `json:"episodeNumber"`
	} `json:"episodes"`
	EpisodeFile struct {
		Path string `json:"path"`
	} `json:"episodeFile"`
	DeletedPath string `json:"deletedPath"`
}

type radarrPayload struct {
	EventType string `json:"eventType"`
	Movie     struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"movie"`
	MovieFile struct {
		Path string `json:"path"`
	} `json:"movieFile"`
	DeletedPath string `json:"deletedPath"`
}

func (s *Server) handleWebhookSonarr(w http.ResponseWriter, r *http.Request) {
	var p sonarrPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		apierr.Respond(w, r, apierr.ErrInvalidInput, err.Error())
		return
	}

	path := p.EpisodeFile.Path
	if path == "" {
		path = p.DeletedPath
	}
	ev := webhook.Event{
		Source:       "sonarr",
		EventType:    p.EventType,
		Path:         path,
		MediaKind:    "episode",
		Language:     s.defaultLanguage(),
		SubtitleKind: "full",
		Title:        p.Series.Title,
	}
	if len(p.Episodes) > 0 {
		ev.Season = p.Episodes[0].SeasonNumber
		ev.Episode = p.Episodes[0].EpisodeNumber
	}
	s.acceptWebhook(w, r, ev)
}

func (s *Server) handleWebhookRadarr(w http.ResponseWriter, r *http.Request) {
	var p radarrPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		apierr.Respond(w, r, apierr.ErrInvalidInput, err.Error())
		return
	}

	path := p.MovieFile.Path
	if path == "" {
		path = p.DeletedPath
	}
	ev := webhook.Event{
		Source:       "radarr",
		EventType:    p.EventType,
		Path:         path,
		MediaKind:    "movie",
		Language:     s.defaultLanguage(),
		SubtitleKind: "full",
		Title:        p.Movie.Title,
	}
	s.acceptWebhook(w, r, ev)
}

func (s *Server) acceptWebhook(w http.ResponseWriter, r *http.Request, ev webhook.Event) {
	if s.Webhook == nil {
		apierr.Respond(w, r, apierr.ErrInternal, "no webhook pipeline configured")
		return
	}
	if err := s.Webhook.Handle(r.Context(), ev); err != nil {
		apierr.Respond(w, r, apierr.ErrInternal, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) defaultLanguage() string {
	return "en"
}
