// Package subtitle holds subtitle-file domain types: the kind/format
// enums, the multi-signal forced/signs classifier (C4.4.4), and a
// hearing-impaired tag stripper (RemoveHIFromSRT). The install path does not
// call the stripper, and no setting enables it.
package subtitle

// Kind classifies the content of a subtitle track: full dialog, forced
// (foreign-language dialog only), or signs (on-screen text only, common in
// fansub releases).
type Kind string

const (
	KindFull   Kind = "full"
	KindForced Kind = "forced"
	KindSigns  Kind = "signs"
)

// Format is the subtitle file's container/markup format.
type Format string

const (
	FormatASS Format = "ass"
	FormatSSA Format = "ssa"
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)
