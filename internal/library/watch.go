package library

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/sublarr/subctl/internal/bus"
)

// Watcher observes standalone (non-managed) folders for new media files,
// triggering an immediate incremental scan instead of waiting for the next
// periodic pass — the push-analogue of Scanner.Scan for folders outside the
// upstream media managers' purview (backend/standalone/watcher.py).
type Watcher struct {
	scanner *Scanner
	bus     bus.Bus
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher creates a Watcher over scanner.Roots. Call Start to begin
// watching; each root is added non-recursively, matching the teacher's
// plugin-directory watcher.
func NewWatcher(scanner *Scanner, b bus.Bus, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, root := range scanner.Roots {
		if err := fsw.Add(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return &Watcher{scanner: scanner, bus: b, logger: logger, watcher: fsw}, nil
}

// Start runs the watch loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Close stops watching every root.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !(event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
				continue
			}
			if !w.scanner.mediaExts()[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			w.handle(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("standalone folder watcher error")
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	_ = w.bus.Publish(ctx, bus.EventStandaloneFileDetected, bus.Message{
		Topic: bus.EventStandaloneFileDetected,
		Payload: map[string]any{
			"path":   filepath.Base(path),
			"type":   "media",
			"wanted": true,
		},
	})

	start := time.Now()
	res, err := w.scanner.ScanFile(ctx, path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", filepath.Base(path)).Msg("standalone incremental scan failed")
		return
	}

	_ = w.bus.Publish(ctx, bus.EventStandaloneScanComplete, bus.Message{
		Topic: bus.EventStandaloneScanComplete,
		Payload: map[string]any{
			"folders_scanned":  0,
			"files_found":      res.FilesFound,
			"wanted_added":     res.WantedAdded,
			"duration_seconds": time.Since(start).Seconds(),
		},
	})
}
