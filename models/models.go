// Package models holds the entities passed between pipeline stages. Each
// value is built once by the stage that owns it and never mutated after.
package models

import "strings"

type RefKind string

const (
	RefYouTube     RefKind = "youtube"
	RefDirectMedia RefKind = "direct_media"
	RefRawText     RefKind = "raw_text"
)

// VideoReference is the resolved form of the caller's raw input.
type VideoReference struct {
	RawInput    string   `json:"raw_input"`
	CanonicalID string   `json:"canonical_id,omitempty"`
	Kind        RefKind  `json:"kind"`
	Languages   []string `json:"languages,omitempty"`
}

type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

type TranscriptSource string

const (
	SourceOfficialCaptions TranscriptSource = "official_captions"
	SourceScrapeAPI        TranscriptSource = "scrape_api"
	SourceAudioTranscribe  TranscriptSource = "audio_transcribe"
	SourcePastedText       TranscriptSource = "pasted_text"
)

type Transcript struct {
	Segments []TranscriptSegment `json:"segments"`
	Source   TranscriptSource    `json:"source"`
	Language string              `json:"language"`
}

// FullText joins the segment texts in chronological order. It is always
// derived so it cannot diverge from the segments.
func (t *Transcript) FullText() string {
	var sb strings.Builder
	for i, seg := range t.Segments {
		if seg.Text == "" {
			continue
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

type SummaryFormat string

const (
	FormatBulletPoints    SummaryFormat = "bullet_points"
	FormatKeyInsights     SummaryFormat = "key_insights"
	FormatDetailed        SummaryFormat = "detailed"
	FormatActionableGuide SummaryFormat = "actionable_guide"
)

// ParseSummaryFormat maps a user-supplied format name onto a known format.
// Unrecognized names fall back to bullet points.
func ParseSummaryFormat(s string) SummaryFormat {
	switch SummaryFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatKeyInsights:
		return FormatKeyInsights
	case FormatDetailed:
		return FormatDetailed
	case FormatActionableGuide:
		return FormatActionableGuide
	default:
		return FormatBulletPoints
	}
}

// SummaryChunk is one bounded slice of the normalized transcript, input to
// the map phase. Index is document order.
type SummaryChunk struct {
	Index     int
	Text      string
	CharCount int
}

// PartialSummary is the map-phase output for exactly one chunk.
type PartialSummary struct {
	ChunkIndex int
	Text       string
}

type FinalSummary struct {
	Format        SummaryFormat `json:"format"`
	Body          string        `json:"body"`
	TokenEstimate int           `json:"token_estimate"`
	ChunkCount    int           `json:"chunk_count"`
	Degraded      bool          `json:"degraded"`
}

// Result is what the core hands back to its caller.
type Result struct {
	TranscriptText string           `json:"transcript_text"`
	SummaryText    string           `json:"summary_text"`
	SourceUsed     TranscriptSource `json:"source_used"`
	Language       string           `json:"language"`
	Degraded       bool             `json:"degraded"`
}
