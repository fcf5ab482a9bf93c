package summarize

import (
	"strings"
	"unicode/utf8"

	"ytbrief/models"
)

// boundaryWindowFraction is how far back from the chunk limit the splitter
// will look for a paragraph or sentence boundary before hard-cutting:
// 10% of maxChunkChars.
const boundaryWindowFraction = 0.1

// splitText cuts text into ordered chunks of at most maxChunkChars,
// preferring paragraph breaks, then sentence ends, within the tolerance
// window near the limit. A hard character cut (on a rune boundary) is the
// last resort.
func splitText(text string, maxChunkChars int) []models.SummaryChunk {
	if maxChunkChars < 1 {
		maxChunkChars = 1
	}
	if len(text) <= maxChunkChars {
		return []models.SummaryChunk{{Index: 0, Text: text, CharCount: len(text)}}
	}

	window := int(float64(maxChunkChars) * boundaryWindowFraction)
	if window < 1 {
		window = 1
	}

	var chunks []models.SummaryChunk
	rest := text
	for len(rest) > maxChunkChars {
		cut := findBoundary(rest, maxChunkChars, window)
		piece := strings.TrimSpace(rest[:cut])
		if piece != "" {
			chunks = append(chunks, models.SummaryChunk{
				Index:     len(chunks),
				Text:      piece,
				CharCount: len(piece),
			})
		}
		rest = strings.TrimLeft(rest[cut:], " \n")
	}
	if rest = strings.TrimSpace(rest); rest != "" {
		chunks = append(chunks, models.SummaryChunk{
			Index:     len(chunks),
			Text:      rest,
			CharCount: len(rest),
		})
	}
	return chunks
}

// findBoundary returns the cut position in s for a chunk of at most limit
// bytes, searching [limit-window, limit] for a paragraph break first, then
// a sentence end.
func findBoundary(s string, limit, window int) int {
	searchStart := limit - window
	if searchStart < 0 {
		searchStart = 0
	}
	region := s[searchStart:limit]

	if i := strings.LastIndex(region, "\n\n"); i >= 0 {
		return searchStart + i + 2
	}
	if i := lastSentenceEnd(region); i >= 0 {
		return searchStart + i
	}

	// Hard cut; back off to a rune boundary so multibyte characters
	// never get split.
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		// Limit is narrower than the first rune. Take the whole rune so
		// the split always consumes input.
		_, size := utf8.DecodeRuneInString(s)
		cut = size
	}
	return cut
}

// lastSentenceEnd finds the position just after the last sentence
// terminator followed by whitespace, or -1.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		c := s[i]
		if c != ' ' && c != '\n' {
			continue
		}
		prev := s[i-1]
		if prev == '.' || prev == '!' || prev == '?' {
			return i + 1
		}
	}
	return -1
}
