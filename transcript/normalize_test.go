package transcript

import (
	"strings"
	"testing"

	"ytbrief/models"
)

func TestNormalizeTextStripsSubtitleArtifacts(t *testing.T) {
	raw := strings.Join([]string{
		"WEBVTT",
		"Kind: captions",
		"Language: en",
		"",
		"1",
		"00:00:01,000 --> 00:00:03,500",
		"<c.colorCCCCCC>welcome back</c> to the channel",
		"",
		"2",
		"00:00:03.500 --> 00:00:06.000",
		"[Music]",
		"today we cover goroutines",
	}, "\n")

	got := NormalizeText(raw)

	for _, banned := range []string{"WEBVTT", "-->", "<c", "[Music]", "00:00"} {
		if strings.Contains(got, banned) {
			t.Errorf("normalized text still contains %q: %q", banned, got)
		}
	}
	if !strings.Contains(got, "welcome back to the channel") {
		t.Errorf("expected speech text to survive, got %q", got)
	}
	if !strings.Contains(got, "today we cover goroutines") {
		t.Errorf("expected speech text to survive, got %q", got)
	}
}

func TestNormalizeTextDeduplicatesConsecutiveLines(t *testing.T) {
	raw := "so what is a channel\nso what is a channel\nso what is a channel\na channel is a pipe"
	got := NormalizeText(raw)

	if n := strings.Count(got, "so what is a channel"); n != 1 {
		t.Errorf("expected 1 occurrence after dedup, got %d in %q", n, got)
	}
	if !strings.Contains(got, "a channel is a pipe") {
		t.Errorf("distinct line dropped: %q", got)
	}
}

func TestNormalizeTextParagraphBreaks(t *testing.T) {
	raw := "first topic line one\nfirst topic line two\n\nsecond topic starts here"
	got := NormalizeText(raw)

	want := "first topic line one first topic line two\n\nsecond topic starts here"
	if got != want {
		t.Errorf("NormalizeText() = %q, want %q", got, want)
	}
}

func TestNormalizeTextDeterministic(t *testing.T) {
	raw := "a\n\nb\nb\n[Applause]\nc   c\n"
	first := NormalizeText(raw)
	second := NormalizeText(raw)
	if first != second {
		t.Errorf("normalization not deterministic: %q vs %q", first, second)
	}
}

func TestNormalizeNilTranscript(t *testing.T) {
	if got := Normalize(nil); got != "" {
		t.Errorf("Normalize(nil) = %q, want empty", got)
	}
}

func TestNormalizeJoinsSegments(t *testing.T) {
	tr := &models.Transcript{
		Segments: []models.TranscriptSegment{
			{Text: "hello everyone", Start: 0, Duration: 2},
			{Text: "[Laughter]", Start: 2, Duration: 1},
			{Text: "let's get started", Start: 3, Duration: 2},
		},
	}
	got := Normalize(tr)
	want := "hello everyone let's get started"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}
