package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"ytbrief/cache"
	"ytbrief/captions"
	"ytbrief/config"
	"ytbrief/errors"
	"ytbrief/format"
	"ytbrief/logger"
	"ytbrief/models"
	"ytbrief/pipeline"
	"ytbrief/ratelimit"
	"ytbrief/summarize"
)

func main() {
	var (
		input      = flag.String("input", "", "YouTube URL, video id, direct media URL, or path to a transcript text file")
		formatName = flag.String("format", "bullet_points", "summary format: bullet_points, key_insights, detailed, actionable_guide")
		languages  = flag.String("languages", "", "comma-separated caption language preference, e.g. en,de")
		htmlOut    = flag.String("html", "", "also write the summary as an HTML page to this path")
	)
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: ytbrief -input <url|id|file> [-format <name>] [-languages en,de] [-html out.html]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := config.Validate(cfg); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	if err := logger.Init(cfg.LogDir, cfg.Debug); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logging")
	}

	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open transcript cache")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close transcript cache")
		}
	}()

	p := buildPipeline(cfg, store)

	rawInput, err := readInput(*input)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to read input")
	}

	result, err := p.Process(context.Background(), rawInput,
		models.ParseSummaryFormat(*formatName), splitLanguages(*languages))
	if err != nil {
		reportFailure(err)
	}

	sum := &models.FinalSummary{
		Format:   models.ParseSummaryFormat(*formatName),
		Body:     result.SummaryText,
		Degraded: result.Degraded,
	}
	fmt.Println(format.Markdown(sum, time.Now()))

	if *htmlOut != "" {
		page, err := format.HTML(sum, time.Now())
		if err != nil {
			logrus.WithError(err).Fatal("Failed to render HTML output")
		}
		if err := os.WriteFile(*htmlOut, []byte(page), 0o644); err != nil {
			logrus.WithError(err).Fatal("Failed to write HTML output")
		}
		logrus.WithField("path", *htmlOut).Info("Wrote HTML summary")
	}
}

func buildPipeline(cfg *config.Config, store *cache.Store) *pipeline.Pipeline {
	httpClient := &http.Client{Timeout: cfg.Captions.HTTPTimeout}
	openaiClient := openai.NewClient(cfg.OpenAI.APIKey)
	limiter := ratelimit.NewLimiter(cfg.RateLimit.Interval, cfg.RateLimit.Burst)

	backoff := ratelimit.DefaultBackoff()
	backoff.Initial = cfg.Captions.InitialBackoff
	backoff.Max = cfg.Captions.MaxBackoff
	backoff.MaxAttempts = cfg.Captions.MaxAttempts

	strategies := []captions.Strategy{
		captions.NewOfficialCaptions(httpClient),
		captions.NewScrapeAPI(httpClient),
	}
	if cfg.Captions.EnableAudioFallback {
		strategies = append(strategies, captions.NewAudioTranscribe(
			httpClient, openaiClient, cfg.OpenAI.WhisperModel,
			cfg.Captions.YTDLPPath, cfg.Captions.TempDir))
	}

	chain := captions.NewChain(strategies, limiter, store, captions.Config{
		MaxAttempts: cfg.Captions.MaxAttempts,
		Backoff:     backoff,
		CacheTTL:    cfg.Cache.TTL,
	})

	summarizer := summarize.New(
		summarize.NewOpenAICompleter(openaiClient, cfg.OpenAI.Model, float32(cfg.OpenAI.Temperature)),
		backoff,
		summarize.Config{
			MaxInputChars:     cfg.Summary.MaxInputChars,
			MaxChunkChars:     cfg.Summary.MaxChunkChars,
			ChunkRetries:      cfg.Summary.ChunkRetries,
			Concurrency:       cfg.Summary.Concurrency,
			MaxRecursionDepth: cfg.Summary.MaxRecursionDepth,
			MaxOutputTokens:   cfg.Summary.MaxOutputTokens,
		})

	return pipeline.New(chain, summarizer, cfg.Captions.Languages, cfg.RequestTimeout)
}

// readInput passes URLs and video ids through and reads anything that names
// an existing file, so pasted transcripts can come from disk.
func readInput(input string) (string, error) {
	if info, err := os.Stat(input); err == nil && !info.IsDir() {
		data, err := os.ReadFile(input)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return input, nil
}

func splitLanguages(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// reportFailure prints the user-facing message and suggestion, then exits
// nonzero.
func reportFailure(err error) {
	var e *errors.Error
	if stderrors.As(err, &e) {
		logrus.WithError(err).WithFields(logrus.Fields{
			"kind":   e.Kind.String(),
			"reason": e.Reason,
			"op":     e.Op,
		}).Error("Request failed")
		fmt.Fprintf(os.Stderr, "Error: %s.\n%s\n", e.Message, e.Suggestion)
		os.Exit(1)
	}
	logrus.WithError(err).Error("Request failed")
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
