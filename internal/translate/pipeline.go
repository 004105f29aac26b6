package translate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/sublarr/subctl/internal/webhook"
)

// Pipeline implements webhook.Translator: it transcribes the affected media
// file, translates each line (consulting Memory first), and installs the
// result as an SRT sidecar.
type Pipeline struct {
	Backend  Backend
	Memory   *Memory
	Logger   zerolog.Logger

	// SourceLanguage is the spoken language Backend.Transcribe is assumed
	// to produce; translation always runs SourceLanguage -> Event.Language.
	SourceLanguage string
}

// Translate implements webhook.Translator.
func (p *Pipeline) Translate(ctx context.Context, ev webhook.Event) error {
	segments, err := p.Backend.Transcribe(ctx, ev.Path)
	if err != nil {
		return fmt.Errorf("translate: transcribe: %w", err)
	}

	translated := make([]Segment, len(segments))
	for i, seg := range segments {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		text, err := p.translateLine(ctx, ev.Language, seg.Text)
		if err != nil {
			return fmt.Errorf("translate: line %d: %w", i, err)
		}
		translated[i] = Segment{StartMS: seg.StartMS, EndMS: seg.EndMS, Text: text}
	}

	base := strings.TrimSuffix(ev.Path, filepath.Ext(ev.Path))
	dest := fmt.Sprintf("%s.%s.srt", base, ev.Language)
	return renameio.WriteFile(dest, []byte(toSRT(translated)), 0o644)
}

func (p *Pipeline) translateLine(ctx context.Context, targetLanguage, text string) (string, error) {
	if p.Memory != nil {
		if cached, ok, err := p.Memory.Lookup(ctx, p.SourceLanguage, targetLanguage, text); err == nil && ok {
			return cached, nil
		}
	}
	translated, err := p.Backend.TranslateLine(ctx, p.SourceLanguage, targetLanguage, text)
	if err != nil {
		return "", err
	}
	if p.Memory != nil {
		if err := p.Memory.Store(ctx, p.SourceLanguage, targetLanguage, text, translated); err != nil {
			p.Logger.Warn().Err(err).Msg("translate: failed to record translation memory entry")
		}
	}
	return translated, nil
}

func toSRT(segments []Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(seg.StartMS), srtTimestamp(seg.EndMS), seg.Text)
	}
	return b.String()
}

func srtTimestamp(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, d/time.Millisecond)
}
