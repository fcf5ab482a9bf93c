// Package resolver classifies raw caller input into a video reference.
// Resolution is a pure function over the input string.
package resolver

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"ytbrief/errors"
	"ytbrief/models"
)

// Known YouTube URL shapes. Video ids are always 11 characters.
var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:m\.)?youtube\.com/watch\?.*v=([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`youtube\.com/(?:embed|v)/([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`youtube\.com/live/([0-9A-Za-z_-]{11})`),
}

var bareVideoID = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)

var mediaExtensions = map[string]bool{
	".mp4":  true,
	".m4a":  true,
	".mp3":  true,
	".wav":  true,
	".webm": true,
	".ogg":  true,
	".flac": true,
	".aac":  true,
	".mov":  true,
	".mkv":  true,
}

// Resolve classifies rawInput as a YouTube video, a direct media URL, or
// pasted raw text. A YouTube-shaped URL with no extractable 11-character id
// is an error rather than falling through to another kind.
func Resolve(rawInput string) (models.VideoReference, error) {
	const op = "resolver.Resolve"

	input := strings.TrimSpace(rawInput)
	if input == "" {
		return models.VideoReference{}, errors.InvalidReference(op, nil, "Input is empty")
	}

	// A bare video id is accepted the same way the URL forms are. Real
	// ids virtually always carry a digit, underscore, or hyphen; an
	// 11-letter word ("information") is pasted text, not an id.
	if bareVideoID.MatchString(input) && strings.ContainsAny(input, "0123456789_-") {
		return models.VideoReference{
			RawInput:    rawInput,
			CanonicalID: input,
			Kind:        models.RefYouTube,
		}, nil
	}

	parsed, err := url.Parse(input)
	isURL := err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
	if !isURL {
		return models.VideoReference{
			RawInput: rawInput,
			Kind:     models.RefRawText,
		}, nil
	}

	host := strings.ToLower(parsed.Hostname())
	if isYouTubeHost(host) {
		id := extractVideoID(input)
		if id == "" {
			return models.VideoReference{}, errors.InvalidReference(
				op, nil, "YouTube URL does not contain a recognizable video id")
		}
		return models.VideoReference{
			RawInput:    rawInput,
			CanonicalID: id,
			Kind:        models.RefYouTube,
		}, nil
	}

	// Anything else reachable over HTTP is treated as direct media; the
	// extension only matters later when choosing the download path.
	return models.VideoReference{
		RawInput:    rawInput,
		CanonicalID: input,
		Kind:        models.RefDirectMedia,
	}, nil
}

func isYouTubeHost(host string) bool {
	return host == "youtu.be" ||
		host == "youtube.com" ||
		strings.HasSuffix(host, ".youtube.com")
}

func extractVideoID(input string) string {
	for _, pattern := range youtubePatterns {
		if m := pattern.FindStringSubmatch(input); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// IsDirectMediaFile reports whether the URL path ends in a known media
// extension, as opposed to a page that merely hosts the media.
func IsDirectMediaFile(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return mediaExtensions[strings.ToLower(path.Ext(parsed.Path))]
}
