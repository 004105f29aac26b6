// Package library walks the managed and standalone media folders for the
// periodic scan (§4.6) and, for standalone folders, watches them for new
// files (a supplemented feature from backend/standalone/watcher.py).
package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sublarr/subctl/internal/fsutil"
	"github.com/sublarr/subctl/internal/media"
	"github.com/sublarr/subctl/internal/subtitle"
	"github.com/sublarr/subctl/internal/upgrade"
	"github.com/sublarr/subctl/internal/wanted"
)

// Want is one (language, subtitle kind) pair the scanner must ensure exists
// as a wanted item for every media file it finds.
type Want struct {
	Language string
	Kind     subtitle.Kind
}

// WantedStore is the subset of wanted.Store the scanner needs; narrowed to
// an interface so tests can fake it.
type WantedStore interface {
	Upsert(ctx context.Context, kind, path, targetLanguage, subtitleKind string, linked wanted.LinkedIDs) (id int64, created bool, err error)
	AllPaths(ctx context.Context) ([]string, error)
	DeleteByPath(ctx context.Context, path string) error
	MarkUpgradeCandidate(ctx context.Context, id int64, format string, score int) error
}

// defaultMediaExts is the set of file extensions considered "media" for
// scanning purposes.
var defaultMediaExts = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".m4v": true, ".ts": true, ".mov": true, ".wmv": true,
}

// subtitleExtFormat maps a sidecar subtitle extension to its Format, used to
// detect whether a (language, kind) pair is already satisfied on disk.
var subtitleExtFormat = map[string]subtitle.Format{
	".ass": subtitle.FormatASS,
	".ssa": subtitle.FormatSSA,
	".srt": subtitle.FormatSRT,
	".vtt": subtitle.FormatVTT,
}

// Result summarizes one Scan pass, mirroring the wanted_scan_complete /
// standalone_scan_complete event payloads (§4.9).
type Result struct {
	FilesFound   int
	WantedAdded  int
	RemovedItems int
}

// Scanner walks a fixed set of root directories looking for media files
// missing a wanted subtitle, grounded on the teacher's symlink-confined
// walk idiom (internal/fsutil.ConfineRelPath) combined with wanted.Store's
// idempotent upsert.
type Scanner struct {
	Roots     []string
	Wants     []Want
	Store     WantedStore
	Logger    zerolog.Logger
	MediaExts map[string]bool // nil uses defaultMediaExts
}

func (s *Scanner) mediaExts() map[string]bool {
	if s.MediaExts != nil {
		return s.MediaExts
	}
	return defaultMediaExts
}

// Scan walks every root, upserting a wanted item for each configured
// (language, kind) pair on each media file found (a pair whose sidecar is
// already on disk is also marked as an upgrade candidate), then deletes wanted items
// whose backing file no longer exists (§4.6 "periodic library scan").
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	var res Result
	seen := make(map[string]bool)

	for _, root := range s.Roots {
		if err := s.walkRoot(ctx, root, seen, &res); err != nil {
			s.Logger.Warn().Err(err).Str("root", root).Msg("library: scan root failed")
		}
	}

	existing, err := s.Store.AllPaths(ctx)
	if err != nil {
		return res, fmt.Errorf("library: list known paths: %w", err)
	}
	for _, path := range existing {
		if seen[path] {
			continue
		}
		if err := s.Store.DeleteByPath(ctx, path); err != nil {
			s.Logger.Warn().Err(err).Str("path", path).Msg("library: delete stale wanted items failed")
			continue
		}
		res.RemovedItems++
	}

	return res, nil
}

func (s *Scanner) walkRoot(ctx context.Context, root string, seen map[string]bool, res *Result) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil //nolint:nilerr
		}
		if d.IsDir() {
			return nil
		}
		if !s.mediaExts()[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil //nolint:nilerr
		}
		confined, err := fsutil.ConfineRelPath(root, rel)
		if err != nil {
			s.Logger.Warn().Err(err).Str("path", path).Msg("library: skipping path outside confined root")
			return nil
		}

		seen[confined] = true
		res.FilesFound++
		s.ensureWanted(ctx, confined, res)
		return nil
	})
}

func (s *Scanner) ensureWanted(ctx context.Context, path string, res *Result) {
	fp := media.FromPath(path)
	for _, w := range s.Wants {
		id, created, err := s.Store.Upsert(ctx, string(fp.Kind), path, w.Language, string(w.Kind), wanted.LinkedIDs{Title: fp.Title})
		if err != nil {
			s.Logger.Warn().Err(err).Str("path", path).Msg("library: upsert wanted item failed")
			continue
		}
		if created {
			res.WantedAdded++
		}

		// A sidecar already on disk isn't "missing" per §4.6, but it may
		// still be upgradable (§4.7): record its format/score as the
		// item's baseline so the retry loop can decide whether a better
		// candidate is worth replacing it with.
		sidecar, ok := s.sidecarPath(path, w.Language)
		if !ok {
			continue
		}
		format, score := upgrade.ScoreExisting(sidecar)
		if format == "" {
			continue
		}
		if err := s.Store.MarkUpgradeCandidate(ctx, id, format, score); err != nil {
			s.Logger.Warn().Err(err).Str("path", path).Msg("library: mark upgrade candidate failed")
		}
	}
}

// ScanFile ensures wanted items exist for a single media file, without a
// full root walk — used by the standalone folder watcher for an immediate
// incremental scan of just the changed path (backend/standalone/watcher.py).
func (s *Scanner) ScanFile(ctx context.Context, path string) (Result, error) {
	var res Result
	if !s.mediaExts()[strings.ToLower(filepath.Ext(path))] {
		return res, nil
	}
	res.FilesFound = 1
	s.ensureWanted(ctx, path, &res)
	return res, nil
}

// sidecarPath reports the path of a subtitle file already existing next to
// path for the given language, regardless of format (§4.4.5's
// destination-path convention: base + language suffix + format extension).
func (s *Scanner) sidecarPath(path, language string) (string, bool) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for ext := range subtitleExtFormat {
		candidate := base + "." + language + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}
