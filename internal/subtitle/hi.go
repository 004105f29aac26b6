package subtitle

import (
	"regexp"
	"strings"
)

// hiPatterns strip hearing-impaired markers: bracketed sound cues, music
// note spans, and all-caps speaker labels. Ported from the Python
// original's hi_remover.py pattern set.
var hiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[(?:music|♪|♫)[^\]]*\]`),
	regexp.MustCompile(`\[[A-Z][A-Z\s,.'\-]+\]`),
	regexp.MustCompile(`\[[a-z][a-z\s,.'\-]+\]`),
	regexp.MustCompile(`(?i)\((?:music|♪|♫)[^)]*\)`),
	regexp.MustCompile(`\([A-Z][A-Z\s,.'\-]+\)`),
	regexp.MustCompile(`\([a-z][a-z\s,.'\-]+\)`),
	regexp.MustCompile(`♪[^♪]*♪`),
	regexp.MustCompile(`♫[^♫]*♫`),
	regexp.MustCompile(`(?m)^♪.*$`),
	regexp.MustCompile(`(?m)^♫.*$`),
	regexp.MustCompile(`(?m)^[A-Z][A-Z\s]{1,20}:\s*`),
	regexp.MustCompile(`(?m)^\s*[♪♫]+\s*$`),
}

var collapseSpaces = regexp.MustCompile(`  +`)

// RemoveHIMarkers strips hearing-impaired tags from a block of subtitle
// dialog text, then collapses leftover whitespace and blank lines.
func RemoveHIMarkers(text string) string {
	result := text
	for _, p := range hiPatterns {
		result = p.ReplaceAllString(result, "")
	}
	result = collapseSpaces.ReplaceAllString(result, " ")

	lines := strings.Split(result, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}

// RemoveHIFromSRT processes whole SRT content block-by-block, preserving
// sequence numbers and timestamps while stripping HI markers from the
// dialog text. A block whose text becomes empty after stripping is
// dropped entirely.
func RemoveHIFromSRT(content string) string {
	blocks := strings.Split(strings.TrimSpace(content), "\n\n")
	cleaned := make([]string, 0, len(blocks))

	for _, block := range blocks {
		lines := strings.Split(block, "\n")
		if len(lines) < 3 {
			cleaned = append(cleaned, block)
			continue
		}
		seq, timestamp := lines[0], lines[1]
		text := strings.Join(lines[2:], "\n")

		cleanedText := RemoveHIMarkers(text)
		if strings.TrimSpace(cleanedText) != "" {
			cleaned = append(cleaned, seq+"\n"+timestamp+"\n"+cleanedText)
		}
	}

	return strings.Join(cleaned, "\n\n")
}
