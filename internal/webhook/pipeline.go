package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sublarr/subctl/internal/bus"
	"github.com/sublarr/subctl/internal/scheduler"
	"github.com/sublarr/subctl/internal/wanted"
)

// Rescanner re-scans the affected series/movie via the upstream media
// manager's own API, so the local view reflects the newly downloaded file
// (§4.8 stage 2). Out of scope internally: any concrete implementation
// talks to Sonarr/Radarr's HTTP API, which this package has no need to know
// about.
type Rescanner interface {
	Rescan(ctx context.Context, ev Event) error
}

// Translator invokes the local translate pipeline as a fallback path
// (§4.8 stage 4). See internal/translate for the concrete implementation.
type Translator interface {
	Translate(ctx context.Context, ev Event) error
}

// Pipeline runs the delay -> re-scan -> search -> translate stages for each
// incoming webhook event, deduplicated per path (§4.8 "Deduplication").
type Pipeline struct {
	Wanted     *wanted.Store
	Scheduler  *scheduler.Scheduler
	Rescanner  Rescanner
	Translator Translator
	Bus        bus.Bus
	Logger     zerolog.Logger

	DelayMinutes  int
	AutoScan      bool
	AutoSearch    bool
	AutoTranslate bool

	mu      sync.Mutex
	pending map[string]*run
}

// run identifies one in-flight pipeline task for a path, so a superseding
// webhook can be distinguished from the task it superseded (context.CancelFunc
// values aren't comparable with ==, so clearPending compares *run pointers).
type run struct {
	cancel context.CancelFunc
}

// Handle processes one webhook event. Delete events are applied eagerly and
// return once the store write completes. All other events are enqueued onto
// a background task and Handle returns immediately ("accepted" semantics,
// §4.8: "the originating HTTP request returns immediately after enqueuing").
func (p *Pipeline) Handle(ctx context.Context, ev Event) error {
	p.publishReceived(ctx, ev)

	if isDelete(ev.EventType) {
		return p.Wanted.DeleteByPath(ctx, ev.Path)
	}

	p.mu.Lock()
	if p.pending == nil {
		p.pending = make(map[string]*run)
	}
	// A webhook for a path already in its delay window restarts the timer:
	// cancel the superseded run before starting the new one (§4.8
	// "Deduplication"; Open Question decision in DESIGN.md).
	if prev, ok := p.pending[ev.Path]; ok {
		prev.cancel()
	}
	runCtx, cancel := context.WithCancel(context.Background())
	this := &run{cancel: cancel}
	p.pending[ev.Path] = this
	p.mu.Unlock()

	go p.runStages(runCtx, ev, this)
	return nil
}

func (p *Pipeline) runStages(ctx context.Context, ev Event, this *run) {
	defer p.clearPending(ev.Path, this)
	defer this.cancel()

	delay := time.Duration(p.DelayMinutes) * time.Minute
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return // superseded by a later webhook for the same path
		}
	}
	if ctx.Err() != nil {
		return
	}

	if p.AutoScan && p.Rescanner != nil {
		if err := p.Rescanner.Rescan(ctx, ev); err != nil {
			p.Logger.Warn().Err(err).Str("path", ev.Path).Msg("webhook: rescan stage failed")
			// Re-scan is not a hard prerequisite: search still runs,
			// since the wanted item may already exist (§4.8).
		}
	}
	if ctx.Err() != nil {
		return
	}

	if p.AutoSearch {
		p.runSearch(ctx, ev)
	}
	if ctx.Err() != nil {
		return
	}

	if p.AutoTranslate && p.Translator != nil {
		if err := p.Translator.Translate(ctx, ev); err != nil {
			p.Logger.Warn().Err(err).Str("path", ev.Path).Msg("webhook: translate stage failed")
		}
	}
}

func (p *Pipeline) runSearch(ctx context.Context, ev Event) {
	id, _, err := p.Wanted.Upsert(ctx, ev.MediaKind, ev.Path, ev.Language, ev.SubtitleKind, wanted.LinkedIDs{Title: ev.Title})
	if err != nil {
		p.Logger.Warn().Err(err).Str("path", ev.Path).Msg("webhook: upsert failed")
		return
	}
	if p.Scheduler == nil {
		return
	}
	item, err := p.Wanted.GetByID(ctx, id)
	if err != nil {
		p.Logger.Warn().Err(err).Int64("item_id", id).Msg("webhook: get by id failed")
		return
	}
	p.Scheduler.ProcessItem(ctx, item)
}

// clearPending removes the path's latch, but only if it still points at
// this run's cancel func — a newer webhook for the same path may have
// already installed its own.
func (p *Pipeline) clearPending(path string, this *run) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if current, ok := p.pending[path]; ok && current == this {
		delete(p.pending, path)
	}
}

func (p *Pipeline) publishReceived(ctx context.Context, ev Event) {
	if p.Bus == nil {
		return
	}
	_ = p.Bus.Publish(ctx, bus.EventWebhookReceived, bus.Message{
		Topic: bus.EventWebhookReceived,
		Payload: map[string]any{
			"source":     ev.Source,
			"event_type": ev.EventType,
			"title":      ev.Title,
			"season":     ev.Season,
			"episode":    ev.Episode,
		},
	})
}
