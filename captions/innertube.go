package captions

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"ytbrief/errors"
	"ytbrief/models"
)

const (
	innertubeClientName    = "WEB"
	innertubeClientVersion = "2.20230728.00.00"
)

// ScrapeAPI queries the player endpoint the web client itself uses. It
// needs no API key or quota, which is exactly why it gets rate limited and
// bot checked more aggressively than the watch page.
type ScrapeAPI struct {
	client   *http.Client
	endpoint string
}

func NewScrapeAPI(client *http.Client) *ScrapeAPI {
	if client == nil {
		client = http.DefaultClient
	}
	return &ScrapeAPI{
		client:   client,
		endpoint: "https://www.youtube.com/youtubei/v1/player?prettyPrint=false",
	}
}

func (s *ScrapeAPI) Name() string { return "scrape_api" }

func (s *ScrapeAPI) Source() models.TranscriptSource {
	return models.SourceScrapeAPI
}

type innertubeRequest struct {
	Context struct {
		Client struct {
			ClientName    string `json:"clientName"`
			ClientVersion string `json:"clientVersion"`
			HL            string `json:"hl"`
		} `json:"client"`
	} `json:"context"`
	VideoID string `json:"videoId"`
}

func (s *ScrapeAPI) Attempt(ctx context.Context, ref models.VideoReference, languages []string) (*models.Transcript, error) {
	if ref.Kind != models.RefYouTube {
		return nil, Terminal(errors.ReasonNoCaptions,
			stderrors.New("player API only handles YouTube references"))
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

	segments, err := s.fetchJSON3(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}

	return &models.Transcript{
		Segments: segments,
		Source:   models.SourceScrapeAPI,
		Language: track.LanguageCode,
	}, nil
}

func (s *ScrapeAPI) fetchPlayerResponse(ctx context.Context, videoID string) (*playerResponse, error) {
	var body innertubeRequest
	body.Context.Client.ClientName = innertubeClientName
	body.Context.Client.ClientVersion = innertubeClientVersion
	body.Context.Client.HL = "en"
	body.VideoID = videoID

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, Transient(errors.ReasonUnknown, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, Transient(errors.ReasonUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", watchUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, Transient(errors.ReasonUnknown, err)
	}
	defer resp.Body.Close()

	if ae := classifyHTTPStatus(resp.StatusCode); ae != nil {
		return nil, ae
	}

	var pr playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, Transient(errors.ReasonUnknown, fmt.Errorf("decoding player response: %w", err))
	}
	return &pr, nil
}

// json3Events is the fmt=json3 caption payload: events carry start/duration
// in milliseconds and text split across segs.
type json3Events struct {
	Events []struct {
		TStartMs    int64 `json:"tStartMs"`
		DDurationMs int64 `json:"dDurationMs"`
		Segs        []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func (s *ScrapeAPI) fetchJSON3(ctx context.Context, trackURL string) ([]models.TranscriptSegment, error) {
	url := trackURL
	if !strings.Contains(url, "fmt=") {
		url += "&fmt=json3"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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

	var events json3Events
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, Transient(errors.ReasonUnknown, fmt.Errorf("decoding caption events: %w", err))
	}

	segments := make([]models.TranscriptSegment, 0, len(events.Events))
	for _, ev := range events.Events {
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		segments = append(segments, models.TranscriptSegment{
			Text:     text,
			Start:    float64(ev.TStartMs) / 1000.0,
			Duration: float64(ev.DDurationMs) / 1000.0,
		})
	}
	return segments, nil
}
