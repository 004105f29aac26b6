package providers

import (
	"github.com/sublarr/subctl/internal/media"
	"github.com/sublarr/subctl/internal/subtitle"
)

// weights holds the per-signal point contributions for raw_score (§4.4.1).
// Episode and movie searches weigh signals differently: season/episode
// match matters for episodes, year match for movies.
type weights struct {
	hash            int
	titleMatch      int
	year            int
	season          int
	episode         int
	releaseGroup    int
	source          int
	audioCodec      int
	resolution      int
	hearingImpaired int
	formatBonus     map[subtitle.Format]int
}

var episodeWeights = weights{
	hash:            200,
	titleMatch:      50,
	year:            10,
	season:          40,
	episode:         40,
	releaseGroup:    20,
	source:          15,
	audioCodec:      10,
	resolution:      10,
	hearingImpaired: -15,
	formatBonus: map[subtitle.Format]int{
		subtitle.FormatASS: 30,
		subtitle.FormatSSA: 25,
		subtitle.FormatSRT: 0,
		subtitle.FormatVTT: 0,
	},
}

var movieWeights = weights{
	hash:            200,
	titleMatch:      50,
	year:            30,
	season:          0,
	episode:         0,
	releaseGroup:    20,
	source:          15,
	audioCodec:      10,
	resolution:      10,
	hearingImpaired: -15,
	formatBonus: map[subtitle.Format]int{
		subtitle.FormatASS: 30,
		subtitle.FormatSSA: 25,
		subtitle.FormatSRT: 0,
		subtitle.FormatVTT: 0,
	},
}

// ScoreCandidate computes raw_score for a candidate against the query's
// media kind, per §4.4.1's fixed weight table. Missing signals contribute
// zero (hearing-impaired is the only negative weight, applied whenever the
// candidate is flagged; Query carries no hearing-impaired preference).
func ScoreCandidate(c Candidate, q Query) int {
	w := episodeWeights
	if q.Fingerprint.Kind == media.KindMovie {
		w = movieWeights
	}

	score := 0
	if c.HashMatch {
		score += w.hash
	}
	if c.TitleMatch {
		score += w.titleMatch
	}
	if c.YearMatch {
		score += w.year
	}
	if c.SeasonMatch {
		score += w.season
	}
	if c.EpisodeMatch {
		score += w.episode
	}
	if c.ReleaseGroupMatch {
		score += w.releaseGroup
	}
	if c.SourceMatch {
		score += w.source
	}
	if c.AudioCodecMatch {
		score += w.audioCodec
	}
	if c.HighResolution {
		score += w.resolution
	}
	if c.HearingImpaired {
		score += w.hearingImpaired
	}
	score += w.formatBonus[c.Format]
	if score < 0 {
		score = 0
	}
	return score
}

// EffectiveScore adds the per-provider user-configurable bias to raw_score
// (§4.4.1's "final effective score").
func EffectiveScore(raw, providerBias int) int {
	eff := raw + providerBias
	if eff < 0 {
		return 0
	}
	return eff
}
