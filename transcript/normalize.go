// Package transcript turns raw caption payloads into plain prose suitable
// for summarization.
package transcript

import (
	"regexp"
	"strings"

	"ytbrief/models"
)

var (
	// SRT/VTT cue timing lines: 00:01:02,345 --> 00:01:04,567 (comma or dot).
	cueTimingRe = regexp.MustCompile(`\d{2}:\d{2}:\d{2}[.,]\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}[.,]\d{3}`)
	// Bare subtitle index lines.
	indexLineRe = regexp.MustCompile(`^\d+$`)
	// VTT file headers and metadata.
	headerLineRe = regexp.MustCompile(`^(WEBVTT|Kind:|Language:|NOTE)\b`)
	// Inline markup tags common in auto-generated tracks.
	markupTagRe = regexp.MustCompile(`<[^>]+>`)
	// Bracketed non-speech annotations: [Music], [Applause], [Laughter].
	annotationRe = regexp.MustCompile(`\[[^\]]*\]`)
)

// Normalize returns the transcript's full text with subtitle artifacts
// removed. Deterministic: identical input yields identical output.
func Normalize(t *models.Transcript) string {
	if t == nil {
		return ""
	}
	return NormalizeText(t.FullText())
}

// NormalizeText strips cue indexes, timing lines, markup tags, and
// non-speech annotations, collapses consecutive duplicate lines (auto
// captions repeat heavily), and joins what remains. Blank-line runs become
// paragraph breaks so downstream chunking can split on them.
func NormalizeText(raw string) string {
	var (
		paragraphs []string
		current    []string
		lastLine   string
	)

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)

		if line == "" {
			flush()
			continue
		}
		if indexLineRe.MatchString(line) || headerLineRe.MatchString(line) || cueTimingRe.MatchString(line) {
			continue
		}

		line = markupTagRe.ReplaceAllString(line, "")
		line = annotationRe.ReplaceAllString(line, "")
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}

		if line == lastLine {
			continue
		}
		current = append(current, line)
		lastLine = line
	}
	flush()

	return strings.Join(paragraphs, "\n\n")
}
