// Package media fingerprints a media file path into the query used to
// drive provider search (§4.4.2): title, season/episode or year, and
// release-group tokens parsed from the filename.
package media

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes a wanted item's media type.
type Kind string

const (
	KindEpisode Kind = "episode"
	KindMovie   Kind = "movie"
)

// Fingerprint is the query derived from a media file, used to build
// provider cache keys and search requests.
type Fingerprint struct {
	Kind    Kind
	Title   string
	Year    int
	Season  int
	Episode int
	// AniDBAbsoluteEpisode carries an anime-style absolute episode number
	// when available, for providers that index by absolute episode rather
	// than season/episode pairs (a supplemented feature, see anidb_mapper.py).
	AniDBAbsoluteEpisode int
	ReleaseTokens        []string
}

var (
	seasonEpisodeRE = regexp.MustCompile(`(?i)[.\s_-][sS](\d{1,2})[eE](\d{1,3})(?:[.\s_-]|$)`)
	yearRE          = regexp.MustCompile(`[.\s_(](\d{4})[.\s_)]`)
	releaseTokenRE  = regexp.MustCompile(`(?i)\b(1080p|720p|2160p|4k|hdr|x264|x265|h264|h265|hevc|web-?dl|webrip|bluray|brrip|dvdrip|remux)\b`)
	nonAlnumRE      = regexp.MustCompile(`[._]+`)
)

// FromPath derives a Fingerprint from a media file's path (basename only;
// directory structure is not consulted). It never touches the filesystem.
func FromPath(path string) Fingerprint {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	normalized := nonAlnumRE.ReplaceAllString(name, " ")

	fp := Fingerprint{}

	if loc := seasonEpisodeRE.FindStringIndex(" " + name + " "); loc != nil {
		m := seasonEpisodeRE.FindStringSubmatch(" " + name + " ")
		fp.Kind = KindEpisode
		fp.Season, _ = strconv.Atoi(m[1])
		fp.Episode, _ = strconv.Atoi(m[2])
		// loc is computed against the padded " name " string; the title is
		// everything before the season/episode marker.
		titleEnd := loc[0]
		if titleEnd > 1 {
			fp.Title = strings.TrimSpace(nonAlnumRE.ReplaceAllString(name[:titleEnd-1], " "))
		}
	} else {
		fp.Kind = KindMovie
		if m := yearRE.FindStringSubmatch(" " + name + " "); m != nil {
			fp.Year, _ = strconv.Atoi(m[1])
			idx := strings.Index(normalized, m[1])
			if idx > 0 {
				fp.Title = strings.TrimSpace(normalized[:idx])
			}
		}
		if fp.Title == "" {
			fp.Title = strings.TrimSpace(normalized)
		}
	}

	if fp.Title == "" {
		fp.Title = strings.TrimSpace(normalized)
	}
	fp.Title = collapseSpaces(fp.Title)

	for _, tok := range releaseTokenRE.FindAllString(name, -1) {
		fp.ReleaseTokens = append(fp.ReleaseTokens, strings.ToLower(tok))
	}

	return fp
}

func collapseSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// CacheKeyQuery renders the fingerprint into a stable, order-independent
// string suitable as input to the provider response cache's key hash.
func (fp Fingerprint) CacheKeyQuery() string {
	var b strings.Builder
	b.WriteString(string(fp.Kind))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(fp.Title))
	b.WriteByte('|')
	switch fp.Kind {
	case KindEpisode:
		b.WriteString(strconv.Itoa(fp.Season))
		b.WriteByte('x')
		b.WriteString(strconv.Itoa(fp.Episode))
	case KindMovie:
		b.WriteString(strconv.Itoa(fp.Year))
	}
	if fp.AniDBAbsoluteEpisode > 0 {
		b.WriteString("|abs")
		b.WriteString(strconv.Itoa(fp.AniDBAbsoluteEpisode))
	}
	return b.String()
}
