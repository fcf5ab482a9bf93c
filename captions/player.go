package captions

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"ytbrief/errors"
)

// captionTrack as it appears in the player response JSON. Kind "asr" marks
// an auto-generated track.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
	Name         struct {
		SimpleText string `json:"simpleText"`
	} `json:"name"`
}

func (t captionTrack) autoGenerated() bool {
	return t.Kind == "asr"
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

func (pr *playerResponse) tracks() []captionTrack {
	return pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
}

// classifyPlayability turns a non-OK playability status into an attempt
// error. A login wall mentioning a bot check is the platform throttling us
// (retryable); any other login or unplayable status means the video itself
// is inaccessible.
func (pr *playerResponse) classifyPlayability() *AttemptError {
	status := pr.PlayabilityStatus.Status
	reason := pr.PlayabilityStatus.Reason

	switch status {
	case "", "OK":
		return nil
	case "LOGIN_REQUIRED":
		if strings.Contains(strings.ToLower(reason), "bot") {
			return Transient(errors.ReasonBlocked, fmt.Errorf("bot check: %s", reason))
		}
		return Terminal(errors.ReasonPrivate, fmt.Errorf("login required: %s", reason))
	case "UNPLAYABLE", "ERROR":
		return Terminal(errors.ReasonPrivate, fmt.Errorf("video unplayable: %s", reason))
	default:
		return Transient(errors.ReasonUnknown, fmt.Errorf("playability %s: %s", status, reason))
	}
}

// selectTrack picks the best caption track: each preferred language in
// order, manual tracks before auto-generated ones; failing that, any
// manual track, then any track at all (the substituted language is carried
// on the returned track).
func selectTrack(tracks []captionTrack, languages []string) (captionTrack, bool) {
	if len(tracks) == 0 {
		return captionTrack{}, false
	}

	for _, lang := range languages {
		for _, manual := range []bool{true, false} {
			for _, track := range tracks {
				if track.LanguageCode == lang && track.autoGenerated() != manual {
					return track, true
				}
			}
		}
	}

	for _, track := range tracks {
		if !track.autoGenerated() {
			return track, true
		}
	}
	return tracks[0], true
}

// extractPlayerResponse pulls the ytInitialPlayerResponse JSON object out
// of a watch page script by matching braces from the marker.
func extractPlayerResponse(script string) (*playerResponse, error) {
	const marker = "ytInitialPlayerResponse = "
	start := strings.Index(script, marker)
	if start == -1 {
		return nil, stderrors.New("no player response in page")
	}
	start += len(marker)

	depth := 0
	end := start
	for end < len(script) {
		switch script[end] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end++
				var pr playerResponse
				if err := json.Unmarshal([]byte(script[start:end]), &pr); err != nil {
					return nil, fmt.Errorf("parsing player response: %w", err)
				}
				return &pr, nil
			}
		}
		end++
	}
	return nil, stderrors.New("malformed player response JSON")
}
