// Package upgrade implements the pure-function upgrade-decision engine
// (C7): scoring an existing subtitle file and deciding whether a new
// candidate is worth replacing it with.
package upgrade

import (
	"os"
	"path/filepath"
	"strings"
)

// FormatBaseScores gives the format-intrinsic quality score; ASS styling
// support makes it inherently preferable to SRT for anime-style fansubs.
var FormatBaseScores = map[string]int{
	"ass": 300,
	"ssa": 280,
	"srt": 150,
}

// defaultBaseScore is used for unrecognized formats (e.g. vtt, sub).
const defaultBaseScore = 100

// sizeBonusThresholds award larger files a quality bonus, since bigger
// subtitle files tend to carry more styling/timing detail.
var sizeBonusThresholds = []struct {
	bytes int64
	bonus int
}{
	{50_000, 20},
	{100_000, 30},
	{200_000, 40},
}

// ScoreExisting scores an existing subtitle file by extension and size.
// Returns ("", 0) if the file does not exist.
func ScoreExisting(path string) (format string, score int) {
	info, err := os.Stat(path)
	if err != nil {
		return "", 0
	}
	format = extOf(path)
	base, ok := FormatBaseScores[format]
	if !ok {
		base = defaultBaseScore
	}
	score = base
	for _, t := range sizeBonusThresholds {
		if info.Size() >= t.bytes {
			score = base + t.bonus
		}
	}
	return format, score
}

func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
