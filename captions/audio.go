package captions

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"ytbrief/errors"
	"ytbrief/models"
)

// CommandRunner executes an external tool and returns its combined output.
// It exists so tests can script the downloader.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Transcriber converts a local audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

type whisperTranscriber struct {
	client *openai.Client
	model  string
}

func (w *whisperTranscriber) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Language: language,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// AudioTranscribe is the last and most expensive tier: download the audio
// and run speech-to-text over it. It is the only strategy that can handle
// direct media references.
type AudioTranscribe struct {
	HTTPClient  *http.Client
	Runner      CommandRunner
	Transcriber Transcriber

	ytdlpPath string
	tempDir   string
}

func NewAudioTranscribe(httpClient *http.Client, openaiClient *openai.Client, whisperModel, ytdlpPath, tempDir string) *AudioTranscribe {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if ytdlpPath == "" {
		ytdlpPath = "yt-dlp"
	}
	return &AudioTranscribe{
		HTTPClient:  httpClient,
		Runner:      execRunner{},
		Transcriber: &whisperTranscriber{client: openaiClient, model: whisperModel},
		ytdlpPath:   ytdlpPath,
		tempDir:     tempDir,
	}
}

func (s *AudioTranscribe) Name() string { return "audio_transcribe" }

func (s *AudioTranscribe) Source() models.TranscriptSource {
	return models.SourceAudioTranscribe
}

func (s *AudioTranscribe) Attempt(ctx context.Context, ref models.VideoReference, languages []string) (*models.Transcript, error) {
	audioPath, cleanup, err := s.fetchAudio(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	language := primaryLanguage(languages)
	text, err := s.Transcriber.Transcribe(ctx, audioPath, language)
	if err != nil {
		return nil, classifyTranscribeError(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, Terminal(errors.ReasonUnknown,
			stderrors.New("speech-to-text produced no text"))
	}

	return &models.Transcript{
		Segments: []models.TranscriptSegment{{Text: text}},
		Source:   models.SourceAudioTranscribe,
		Language: language,
	}, nil
}

func (s *AudioTranscribe) fetchAudio(ctx context.Context, ref models.VideoReference) (string, func(), error) {
	switch ref.Kind {
	case models.RefYouTube:
		return s.extractYouTubeAudio(ctx, ref.CanonicalID)
	case models.RefDirectMedia:
		return s.downloadDirect(ctx, ref.CanonicalID)
	default:
		return "", nil, Terminal(errors.ReasonNoCaptions,
			stderrors.New("audio strategy needs a media reference"))
	}
}

func (s *AudioTranscribe) extractYouTubeAudio(ctx context.Context, videoID string) (string, func(), error) {
	outPath := filepath.Join(s.tempDir, "ytbrief-"+videoID+".m4a")
	videoURL := "https://www.youtube.com/watch?v=" + videoID

	output, err := s.Runner.Run(ctx, s.ytdlpPath,
		"-x", "--audio-format", "m4a",
		"--no-playlist", "--quiet", "--no-warnings",
		"-o", outPath,
		videoURL,
	)
	if err != nil {
		return "", nil, classifyDownloaderOutput(string(output), err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", nil, Transient(errors.ReasonUnknown,
			fmt.Errorf("downloader reported success but wrote no file: %w", err))
	}

	cleanup := func() { os.Remove(outPath) }
	return outPath, cleanup, nil
}

func (s *AudioTranscribe) downloadDirect(ctx context.Context, mediaURL string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", nil, Transient(errors.ReasonUnknown, err)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", nil, Transient(errors.ReasonUnknown, err)
	}
	defer resp.Body.Close()

	if ae := classifyHTTPStatus(resp.StatusCode); ae != nil {
		return "", nil, ae
	}

	ext := path.Ext(mediaURL)
	if len(ext) > 5 || ext == "" {
		ext = ".media"
	}
	tmp, err := os.CreateTemp(s.tempDir, "ytbrief-*"+ext)
	if err != nil {
		return "", nil, Transient(errors.ReasonUnknown, err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, Transient(errors.ReasonUnknown, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, Transient(errors.ReasonUnknown, err)
	}

	cleanup := func() { os.Remove(tmp.Name()) }
	return tmp.Name(), cleanup, nil
}

// classifyDownloaderOutput inspects yt-dlp's output to split the terminal
// conditions (private, removed) from throttling and bot checks.
func classifyDownloaderOutput(output string, err error) *AttemptError {
	lower := strings.ToLower(output)
	wrapped := fmt.Errorf("audio download failed: %w: %s", err, strings.TrimSpace(output))

	switch {
	case strings.Contains(lower, "private video"),
		strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "has been removed"):
		return Terminal(errors.ReasonPrivate, wrapped)
	case strings.Contains(lower, "sign in to confirm"),
		strings.Contains(lower, "not a bot"):
		return Transient(errors.ReasonBlocked, wrapped)
	case strings.Contains(lower, "429"),
		strings.Contains(lower, "too many requests"):
		return Transient(errors.ReasonRateLimited, wrapped)
	default:
		return Transient(errors.ReasonUnknown, wrapped)
	}
}

func classifyTranscribeError(err error) *AttemptError {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return Transient(errors.ReasonRateLimited, err)
		case apiErr.HTTPStatusCode >= 500:
			return Transient(errors.ReasonUnknown, err)
		default:
			return Terminal(errors.ReasonUnknown, err)
		}
	}
	return Transient(errors.ReasonUnknown, err)
}

// primaryLanguage reduces the first preference to its base tag, which is
// what the speech-to-text API expects ("en-US" -> "en").
func primaryLanguage(languages []string) string {
	if len(languages) == 0 {
		return "en"
	}
	lang := languages[0]
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
