package providers

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// reloadDebounce is the coalescing window for plugin directory changes
// (§4.3: "coalesces events with a ~2s debounce, using a restartable timer").
const reloadDebounce = 2 * time.Second

// Watcher observes a plugin directory and triggers an atomic registry
// reload whenever its contents change, debounced so a burst of writes (e.g.
// an editor's save-as-temp-then-rename) produces a single reload.
type Watcher struct {
	dir      string
	registry *Registry
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a Watcher for dir. Call Start to begin watching.
func NewWatcher(dir string, registry *Registry, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{dir: dir, registry: registry, logger: logger, watcher: fsw}, nil
}

// Start runs the watch loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Close stops watching the directory.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, func() {
				w.reload()
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("plugin directory watcher error")
		}
	}
}

func (w *Watcher) reload() {
	builtins := make(map[string]bool)
	for _, s := range w.registry.List() {
		if s.Metadata.BuiltIn {
			builtins[s.Metadata.Name] = true
		}
	}

	loaded, errs := LoadDir(w.dir, builtins)
	for _, e := range errs {
		w.logger.Warn().Err(e).Str("path", e.Path).Msg("plugin manifest rejected")
	}
	w.registry.ReplacePlugins(loaded)
	w.logger.Info().Int("loaded", len(loaded)).Int("rejected", len(errs)).Msg("plugin directory reloaded")
}
