package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sublarr/subctl/internal/subtitle"
)

// Manifest is a plugin's declaration (§4.3): a YAML file in the configured
// plugin directory that describes a generic HTTP-backed provider. Go has no
// safe in-process dynamic code loading equivalent to the Python original's
// importable module; a declarative manifest plus a generic HTTP client
// keeps the same contract (name, capability set, metadata, config fields)
// without executing untrusted code.
type Manifest struct {
	Name         string        `yaml:"name"`
	Version      string        `yaml:"version"`
	Author       string        `yaml:"author"`
	Description  string        `yaml:"description"`
	Languages    []string      `yaml:"languages"`
	RequiresAuth bool          `yaml:"requires_auth"`
	Homepage     string        `yaml:"homepage"`
	Checksum     string        `yaml:"checksum"`
	Fields       []ConfigField `yaml:"fields"`

	Search   EndpointSpec `yaml:"search"`
	Download EndpointSpec `yaml:"download"`
}

// EndpointSpec describes one HTTP call a generic plugin provider makes. URL
// is a text/template string interpolated with the query/candidate fields.
type EndpointSpec struct {
	Method string            `yaml:"method"`
	URL    string            `yaml:"url"`
	Header map[string]string `yaml:"headers"`
}

// LoadError records why one manifest file failed validation or parsing;
// a failure is recorded per-file and does not abort the directory scan
// (§4.3).
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

// LoadDir scans dir for plugin manifest files (*.yaml, *.yml), validating
// each and returning the providers that passed validation plus one
// LoadError per file that didn't. Collisions with builtinNames are rejected.
func LoadDir(dir string, builtinNames map[string]bool) ([]Provider, []LoadError) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []LoadError{{Path: dir, Err: err}}
	}

	seen := make(map[string]bool, len(builtinNames))
	for k := range builtinNames {
		seen[k] = true
	}

	var loaded []Provider
	var errs []LoadError

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		path := filepath.Join(dir, name)

		m, err := parseManifest(path)
		if err != nil {
			errs = append(errs, LoadError{Path: path, Err: err})
			continue
		}
		if err := validateManifest(m, seen); err != nil {
			errs = append(errs, LoadError{Path: path, Err: err})
			continue
		}

		seen[m.Name] = true
		loaded = append(loaded, newPluginProvider(m))
	}

	return loaded, errs
}

func parseManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- plugin directory is user-managed by design
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse yaml: %w", err)
	}
	return m, nil
}

func validateManifest(m Manifest, seen map[string]bool) error {
	if m.Name == "" {
		return fmt.Errorf("missing required field: name")
	}
	lower := strings.ToLower(m.Name)
	if lower != m.Name {
		return fmt.Errorf("name must be lowercase: %q", m.Name)
	}
	if seen[m.Name] {
		return fmt.Errorf("name %q collides with an existing provider", m.Name)
	}
	if m.Search.URL == "" {
		return fmt.Errorf("missing required search endpoint")
	}
	return nil
}

// pluginProvider is a Provider backed entirely by a Manifest's declared HTTP
// endpoints, templated per-call.
type pluginProvider struct {
	manifest Manifest
	client   *http.Client
}

func newPluginProvider(m Manifest) *pluginProvider {
	return &pluginProvider{
		manifest: m,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *pluginProvider) Metadata() Metadata {
	return Metadata{
		Name:         p.manifest.Name,
		Version:      p.manifest.Version,
		Author:       p.manifest.Author,
		Description:  p.manifest.Description,
		Fields:       p.manifest.Fields,
		Languages:    p.manifest.Languages,
		RequiresAuth: p.manifest.RequiresAuth,
		Homepage:     p.manifest.Homepage,
		Checksum:     p.manifest.Checksum,
		BuiltIn:      false,
	}
}

// pluginSearchResult is the expected JSON shape of a plugin search
// endpoint's response body.
type pluginSearchResult struct {
	Candidates []Candidate `json:"candidates"`
}

func (p *pluginProvider) Search(ctx context.Context, q Query) ([]Candidate, error) {
	url, err := renderTemplate(p.manifest.Search.URL, map[string]any{
		"Title":    q.Title,
		"Season":   q.Season,
		"Episode":  q.Episode,
		"Year":     q.Year,
		"Language": q.Language,
		"Kind":     string(q.Kind),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, firstNonEmpty(p.manifest.Search.Method, http.MethodGet), url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range p.manifest.Search.Header {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("plugin %s: search returned status %d", p.manifest.Name, resp.StatusCode)
	}

	var result pluginSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	for i := range result.Candidates {
		result.Candidates[i].ProviderName = p.manifest.Name
		if result.Candidates[i].SubtitleKindDetected == "" {
			result.Candidates[i].SubtitleKindDetected = subtitle.ClassifyProviderResult(result.Candidates[i].Filename, nil)
		}
	}
	return result.Candidates, nil
}

func (p *pluginProvider) Download(ctx context.Context, c Candidate) ([]byte, error) {
	url, err := renderTemplate(p.manifest.Download.URL, map[string]any{
		"ExternalID": c.ExternalID,
		"Language":   c.Language,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, firstNonEmpty(p.manifest.Download.Method, http.MethodGet), url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range p.manifest.Download.Header {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("plugin %s: download returned status %d", p.manifest.Name, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func renderTemplate(text string, data map[string]any) (string, error) {
	tmpl, err := template.New("endpoint").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse endpoint template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render endpoint template: %w", err)
	}
	return buf.String(), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
