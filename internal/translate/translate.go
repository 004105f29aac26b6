// Package translate orchestrates the local speech-to-text + LLM translation
// fallback pipeline (§4.8 stage 4): two external collaborators the spec
// explicitly keeps out of scope ("speech-to-text model execution,
// translation LLM internals"), glued together here with a translation-memory
// cache (SUPPLEMENTED FEATURES) that skips re-translating lines already seen
// for the same language pair.
package translate

import "context"

// Segment is one transcribed line with its timing, produced by Backend's
// speech-to-text step.
type Segment struct {
	StartMS int64
	EndMS   int64
	Text    string
}

// Backend is the external STT + LLM collaborator. A concrete implementation
// wraps whatever local model-serving process the deployment runs; this
// package only orchestrates calls to it.
type Backend interface {
	Transcribe(ctx context.Context, mediaPath string) ([]Segment, error)
	TranslateLine(ctx context.Context, sourceLanguage, targetLanguage, text string) (string, error)
}
