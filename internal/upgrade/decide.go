package upgrade

import (
	"os"
	"time"
)

// Reason is a short machine-readable tag explaining a Decide outcome.
type Reason string

const (
	ReasonWouldDowngrade     Reason = "would_downgrade_ass_to_srt"
	ReasonPreferredFormat    Reason = "srt_to_ass_preferred"
	ReasonScoreImprovement   Reason = "score_improvement"
	ReasonBelowThreshold     Reason = "below_threshold"
)

// Input carries everything Decide needs to reach a verdict; it never reads
// the filesystem itself, so it is trivially unit-testable.
type Input struct {
	CurrentFormat       string
	CurrentScore        int
	NewFormat           string
	NewScore            int
	PreferASS           bool
	MinScoreDelta       int
	WindowDays          int
	ExistingFileModTime time.Time // zero value means "unknown age"
	Now                 time.Time
}

// Output is Decide's verdict.
type Output struct {
	ShouldUpgrade bool
	Reason        Reason
	EffectiveDelta int
	ScoreDelta     int
}

// Decide implements should_upgrade from the Python original exactly:
//
//  1. Never downgrade ASS -> SRT.
//  2. SRT -> ASS always upgrades when PreferASS is set.
//  3. Same-format (or any other pair) requires ScoreDelta >= MinScoreDelta.
//  4. Within WindowDays of the existing file's mtime, the required delta
//     doubles (avoid thrashing on a freshly-downloaded subtitle).
func Decide(in Input) Output {
	if in.CurrentFormat == "ass" && in.NewFormat == "srt" {
		return Output{ShouldUpgrade: false, Reason: ReasonWouldDowngrade}
	}

	if in.CurrentFormat == "srt" && in.NewFormat == "ass" && in.PreferASS {
		return Output{
			ShouldUpgrade: true,
			Reason:        ReasonPreferredFormat,
			ScoreDelta:    in.NewScore - in.CurrentScore,
		}
	}

	effectiveDelta := in.MinScoreDelta
	if !in.ExistingFileModTime.IsZero() && in.WindowDays > 0 {
		now := in.Now
		if now.IsZero() {
			now = time.Now()
		}
		ageDays := now.Sub(in.ExistingFileModTime).Hours() / 24
		if ageDays < float64(in.WindowDays) {
			effectiveDelta = in.MinScoreDelta * 2
		}
	}

	delta := in.NewScore - in.CurrentScore
	if delta >= effectiveDelta {
		return Output{
			ShouldUpgrade:  true,
			Reason:         ReasonScoreImprovement,
			EffectiveDelta: effectiveDelta,
			ScoreDelta:     delta,
		}
	}

	return Output{
		ShouldUpgrade:  false,
		Reason:         ReasonBelowThreshold,
		EffectiveDelta: effectiveDelta,
		ScoreDelta:     delta,
	}
}

// DecideForFile is a thin filesystem-reading wrapper around Decide, used by
// the scheduler/aggregator where the existing file's mtime is needed.
func DecideForFile(existingPath string, in Input) Output {
	if existingPath != "" {
		if info, err := os.Stat(existingPath); err == nil {
			in.ExistingFileModTime = info.ModTime()
		}
	}
	return Decide(in)
}
