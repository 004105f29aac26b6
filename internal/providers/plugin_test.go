package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sublarr/subctl/internal/media"
)

func TestLoadDirValidatesAndSkipsBadManifests(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "good.yaml", `
name: myplugin
version: "1.0"
search:
  url: "http://example.test/search?q={{.Title}}"
`)
	writeFile(t, dir, "missing-name.yaml", `
search:
  url: "http://example.test/search"
`)
	writeFile(t, dir, "collides.yaml", `
name: builtin
search:
  url: "http://example.test/search"
`)
	writeFile(t, dir, "not-yaml.txt", "ignored")

	loaded, errs := LoadDir(dir, map[string]bool{"builtin": true})

	require.Len(t, loaded, 1)
	assert.Equal(t, "myplugin", loaded[0].Metadata().Name)
	assert.Len(t, errs, 2)
}

func TestPluginProviderSearchCallsTemplatedEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search?q=Show", r.URL.String())
		_ = json.NewEncoder(w).Encode(pluginSearchResult{
			Candidates: []Candidate{{ExternalID: "abc", Filename: "Show.srt"}},
		})
	}))
	defer srv.Close()

	m := Manifest{
		Name: "httpplugin",
		Search: EndpointSpec{
			URL: srv.URL + "/search?q={{.Title}}",
		},
	}
	p := newPluginProvider(m)

	cands, err := p.Search(context.Background(), Query{Fingerprint: media.Fingerprint{Title: "Show"}})
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "httpplugin", cands[0].ProviderName)
	assert.Equal(t, "abc", cands[0].ExternalID)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}
