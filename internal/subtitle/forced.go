package subtitle

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// forcedFilenameRE matches the standard Plex/Jellyfin/Emby/Kodi external
// subtitle naming convention: title.forced.srt, title.signs.ass, etc.
var forcedFilenameRE = regexp.MustCompile(`(?i)\.(?:forced|signs?|foreign)\.(?:ass|srt|ssa|vtt)$`)

var signsSongsRE = regexp.MustCompile(`(?i)\bsigns?\s*[&+]\s*songs?\b`)
var signsOnlyRE = regexp.MustCompile(`(?i)\bsigns?\s*only\b`)
var forcedWordRE = regexp.MustCompile(`(?i)\bforced\b`)

// Signal is one vote toward a Kind, with a confidence in [0,1].
type Signal struct {
	Kind       Kind
	Confidence float64
}

// StreamInfo is the subset of an ffprobe-style stream description the
// classifier inspects: whether the container marked the track "forced",
// and any human-readable stream title.
type StreamInfo struct {
	DispositionForced bool
	Title             string
}

// StyleInfo summarizes an already-parsed ASS subtitle's style usage: whether
// any line uses a dialogue-style vs. a signs-only style. The ASS parser
// itself is out of scope here (§1); callers that do parse ASS content feed
// the result in for the stylistic signal below.
type StyleInfo struct {
	DialogStyles bool
	SignsStyles  bool
}

// Classify detects whether a subtitle is full, forced, or signs using
// multiple signals in priority order, matching the Python original's
// detect_subtitle_type exactly:
//
//  1. Container disposition.forced        -> (forced, 1.0)
//  2. Filename pattern                    -> (forced|signs, 0.9)
//  3. Stream title keywords                -> (forced|signs, 0.8)
//  4. ASS style usage, signs-only content -> (signs, 0.7)
//
// If two or more signals agree on a Kind, that Kind wins with the highest
// confidence among the agreeing signals. With a single signal, the
// highest-confidence signal wins. With no signals, the result is
// (full, 1.0).
func Classify(stream *StreamInfo, filePath string, style *StyleInfo) (Kind, float64) {
	var signals []Signal

	if stream != nil && stream.DispositionForced {
		signals = append(signals, Signal{KindForced, 1.0})
	}

	if filePath != "" {
		name := strings.ToLower(filepath.Base(filePath))
		if strings.Contains(name, ".forced.") || strings.Contains(name, ".foreign.") {
			signals = append(signals, Signal{KindForced, 0.9})
		}
		if strings.Contains(name, ".signs.") || strings.Contains(name, ".sign.") {
			signals = append(signals, Signal{KindSigns, 0.9})
		}
	}

	if stream != nil && stream.Title != "" {
		title := strings.ToLower(stream.Title)
		if strings.Contains(title, "forced") || strings.Contains(title, "foreign") {
			signals = append(signals, Signal{KindForced, 0.8})
		}
		if strings.Contains(title, "sign") || strings.Contains(title, "song") {
			signals = append(signals, Signal{KindSigns, 0.8})
		}
	}

	if style != nil && style.SignsStyles && !style.DialogStyles {
		signals = append(signals, Signal{KindSigns, 0.7})
	}

	if len(signals) == 0 {
		return KindFull, 1.0
	}

	counts := map[Kind]int{}
	maxConf := map[Kind]float64{}
	for _, s := range signals {
		counts[s.Kind]++
		if s.Confidence > maxConf[s.Kind] {
			maxConf[s.Kind] = s.Confidence
		}
	}

	kinds := make([]Kind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return counts[kinds[i]] > counts[kinds[j]] })

	for _, k := range kinds {
		if counts[k] >= 2 {
			return k, maxConf[k]
		}
	}

	best := signals[0]
	for _, s := range signals[1:] {
		if s.Confidence > best.Confidence {
			best = s
		}
	}
	return best.Kind, best.Confidence
}

// IsForcedExternalSub reports whether an external subtitle file's filename
// follows the standard forced/signs/foreign naming convention. Used for
// fast library scanning without opening the file.
func IsForcedExternalSub(filePath string) bool {
	return forcedFilenameRE.MatchString(filepath.Base(filePath))
}

// ProviderResultMeta carries provider-specific hints that classify a search
// result (e.g. OpenSubtitles' "foreign_parts_only" flag).
type ProviderResultMeta struct {
	ForeignPartsOnly bool
}

// ClassifyProviderResult classifies a provider search result by filename
// and any provider-specific metadata, matching classify_forced_result.
func ClassifyProviderResult(resultFilename string, meta *ProviderResultMeta) Kind {
	if meta != nil && meta.ForeignPartsOnly {
		return KindForced
	}
	if resultFilename == "" {
		return KindFull
	}

	name := strings.ToLower(resultFilename)
	if strings.Contains(name, ".forced.") || strings.Contains(name, ".foreign.") {
		return KindForced
	}
	if strings.Contains(name, ".signs.") || strings.Contains(name, ".sign.") {
		return KindSigns
	}
	if signsSongsRE.MatchString(name) || signsOnlyRE.MatchString(name) {
		return KindSigns
	}
	if forcedWordRE.MatchString(name) {
		return KindForced
	}
	return KindFull
}
