package captions

import (
	"context"
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ytbrief/errors"
	"ytbrief/models"
)

const watchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// OfficialCaptions reads the published caption tracks off the video's watch
// page and fetches the selected track's timed-text payload.
type OfficialCaptions struct {
	client  *http.Client
	baseURL string
}

func NewOfficialCaptions(client *http.Client) *OfficialCaptions {
	if client == nil {
		client = http.DefaultClient
	}
	return &OfficialCaptions{
		client:  client,
		baseURL: "https://www.youtube.com",
	}
}

func (s *OfficialCaptions) Name() string { return "official_captions" }

func (s *OfficialCaptions) Source() models.TranscriptSource {
	return models.SourceOfficialCaptions
}

func (s *OfficialCaptions) Attempt(ctx context.Context, ref models.VideoReference, languages []string) (*models.Transcript, error) {
	if ref.Kind != models.RefYouTube {
		return nil, Terminal(errors.ReasonNoCaptions,
			stderrors.New("official captions only exist for YouTube references"))
	}

	pr, err := s.fetchPlayerResponse(ctx, ref.CanonicalID)
	if err != nil {
		return nil, err
	}
	if ae := pr.classifyPlayability(); ae != nil {
		return nil, ae
	}

	track, ok := selectTrack(pr.tracks(), languages)
	if !ok {
		return nil, Terminal(errors.ReasonNoCaptions,
			stderrors.New("video publishes no caption tracks"))
	}

	segments, err := s.fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}

	return &models.Transcript{
		Segments: segments,
		Source:   models.SourceOfficialCaptions,
		Language: track.LanguageCode,
	}, nil
}

func (s *OfficialCaptions) fetchPlayerResponse(ctx context.Context, videoID string) (*playerResponse, error) {
	pageURL := fmt.Sprintf("%s/watch?v=%s", s.baseURL, videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, Transient(errors.ReasonUnknown, err)
	}
	req.Header.Set("User-Agent", watchUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, Transient(errors.ReasonUnknown, err)
	}
	defer resp.Body.Close()

	if ae := classifyHTTPStatus(resp.StatusCode); ae != nil {
		return nil, ae
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, Transient(errors.ReasonUnknown, fmt.Errorf("parsing watch page: %w", err))
	}

	var (
		pr       *playerResponse
		parseErr error
	)
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if !strings.Contains(text, "ytInitialPlayerResponse") {
			return true
		}
		pr, parseErr = extractPlayerResponse(text)
		return false
	})
	if parseErr != nil {
		return nil, Transient(errors.ReasonUnknown, parseErr)
	}
	if pr == nil {
		// Pages without a player response are consent walls or bot checks.
		return nil, Transient(errors.ReasonBlocked,
			stderrors.New("watch page has no player response"))
	}
	return pr, nil
}

// timedText is the default caption track payload:
// <transcript><text start="1.2" dur="3.4">...</text></transcript>
type timedText struct {
	XMLName xml.Name       `xml:"transcript"`
	Texts   []timedTextCue `xml:"text"`
}

type timedTextCue struct {
	Start    string `xml:"start,attr"`
	Duration string `xml:"dur,attr"`
	Text     string `xml:",chardata"`
}

func (s *OfficialCaptions) fetchTimedText(ctx context.Context, trackURL string) ([]models.TranscriptSegment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return nil, Transient(errors.ReasonUnknown, err)
	}
	req.Header.Set("User-Agent", watchUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, Transient(errors.ReasonUnknown, err)
	}
	defer resp.Body.Close()

	if ae := classifyHTTPStatus(resp.StatusCode); ae != nil {
		return nil, ae
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(errors.ReasonUnknown, err)
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, Transient(errors.ReasonUnknown, fmt.Errorf("parsing timed text: %w", err))
	}

	segments := make([]models.TranscriptSegment, 0, len(tt.Texts))
	for _, cue := range tt.Texts {
		text := strings.TrimSpace(html.UnescapeString(cue.Text))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(cue.Start, 64)
		dur, _ := strconv.ParseFloat(cue.Duration, 64)
		segments = append(segments, models.TranscriptSegment{
			Text:     text,
			Start:    start,
			Duration: dur,
		})
	}
	return segments, nil
}
