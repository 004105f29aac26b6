package translate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sublarr/subctl/internal/persistence/sqlite"
	"github.com/sublarr/subctl/internal/webhook"
)

type fakeBackend struct {
	segments []Segment
	calls    int
}

func (f *fakeBackend) Transcribe(context.Context, string) ([]Segment, error) {
	return f.segments, nil
}

func (f *fakeBackend) TranslateLine(_ context.Context, _, _, text string) (string, error) {
	f.calls++
	return "[translated] " + text, nil
}

func TestTranslatePipelineWritesSRTAndUsesMemory(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "show.s01e01.mkv")
	require.NoError(t, os.WriteFile(mediaPath, []byte("fake"), 0o600))

	db, err := sqlite.Open(filepath.Join(dir, "tm.sqlite"), sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mem, err := NewMemory(context.Background(), db)
	require.NoError(t, err)

	backend := &fakeBackend{segments: []Segment{
		{StartMS: 0, EndMS: 1000, Text: "hello"},
		{StartMS: 1000, EndMS: 2000, Text: "hello"}, // repeated line, should hit TM on 2nd pass
	}}

	p := &Pipeline{Backend: backend, Memory: mem, Logger: zerolog.Nop(), SourceLanguage: "ja"}
	ev := webhook.Event{Path: mediaPath, Language: "en"}

	require.NoError(t, p.Translate(context.Background(), ev))
	require.Equal(t, 1, backend.calls, "the second identical line should be served from translation memory")

	data, err := os.ReadFile(filepath.Join(dir, "show.s01e01.en.srt"))
	require.NoError(t, err)
	require.Contains(t, string(data), "[translated] hello")
	require.Contains(t, string(data), "00:00:00,000 --> 00:00:01,000")
}
