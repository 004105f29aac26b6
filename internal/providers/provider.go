// Package providers implements the provider registry, plugin loader, and
// aggregation/scoring pipeline (C3+C4): a uniform contract over pluggable
// upstream subtitle search providers, guarded by per-provider circuit
// breakers, response caching, rate limiting, and a scored best-selection
// algorithm.
package providers

import (
	"context"

	"github.com/sublarr/subctl/internal/media"
	"github.com/sublarr/subctl/internal/subtitle"
)

// Query is the search intent the aggregator turns into provider calls,
// derived from a wanted item's media fingerprint plus the target language
// and requested subtitle kind (§4.4.2).
type Query struct {
	media.Fingerprint
	Language     string
	Kind         subtitle.Kind
	FormatFilter subtitle.Format // optional; zero value means "any format"
}

// Candidate is one provider search result, carrying everything the scoring
// and best-selection steps need (§4.4.1).
type Candidate struct {
	ProviderName         string
	ExternalID           string
	Language             string
	Format               subtitle.Format
	Filename             string
	ReleaseInfo          string
	HashMatch            bool
	TitleMatch           bool
	YearMatch            bool
	SeasonMatch          bool
	EpisodeMatch         bool
	ReleaseGroupMatch    bool
	SourceMatch          bool
	AudioCodecMatch      bool
	HighResolution       bool
	HearingImpaired      bool
	ForeignPartsOnly     bool
	SubtitleKindDetected subtitle.Kind
	RawScore             int
	EffectiveScore       int
	ResponseLatencyMS    int64
}

// ConfigField describes one user-configurable setting a plugin exposes
// (§4.3), e.g. an API key or base URL.
type ConfigField struct {
	Key      string `yaml:"key"`
	Label    string `yaml:"label"`
	Type     string `yaml:"type"` // "text", "password", "number"
	Required bool   `yaml:"required"`
	Default  string `yaml:"default"`
	Help     string `yaml:"help"`
}

// Metadata describes a provider for the registry listing endpoint and, for
// plugins, the manifest that declared it (§4.3).
type Metadata struct {
	Name         string
	Version      string
	Author       string
	Description  string
	Fields       []ConfigField
	Languages    []string
	RequiresAuth bool
	// Homepage/Checksum are supplemented marketplace-index metadata
	// (backend/routes/marketplace.py); no install flow is implemented.
	Homepage string
	Checksum string
	BuiltIn  bool
}

// Provider is the uniform contract every built-in or plugin-declared
// provider implements.
type Provider interface {
	Metadata() Metadata
	Search(ctx context.Context, q Query) ([]Candidate, error)
	Download(ctx context.Context, c Candidate) ([]byte, error)
}
