// Package pipeline wires the stages end to end: resolve the input,
// acquire a transcript, normalize it, summarize it. Each request runs
// under one deadline and one request id.
package pipeline

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ytbrief/errors"
	"ytbrief/models"
	"ytbrief/resolver"
	"ytbrief/transcript"
)

// Acquirer produces a transcript for a resolved reference.
type Acquirer interface {
	Acquire(ctx context.Context, ref models.VideoReference, languages []string) (*models.Transcript, error)
}

// Summarizer condenses normalized transcript text.
type Summarizer interface {
	Summarize(ctx context.Context, text string, format models.SummaryFormat) (*models.FinalSummary, error)
}

type Pipeline struct {
	acquirer   Acquirer
	summarizer Summarizer
	languages  []string
	timeout    time.Duration
	logger     *logrus.Logger
}

func New(acquirer Acquirer, summarizer Summarizer, languages []string, timeout time.Duration) *Pipeline {
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Pipeline{
		acquirer:   acquirer,
		summarizer: summarizer,
		languages:  languages,
		timeout:    timeout,
		logger:     logrus.StandardLogger(),
	}
}

// Process runs one request from raw input to final summary. languages
// overrides the configured preference order when non-empty.
func (p *Pipeline) Process(ctx context.Context, rawInput string, format models.SummaryFormat, languages []string) (*models.Result, error) {
	const op = "pipeline.Pipeline.Process"

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	logger := p.logger.WithFields(logrus.Fields{
		"operation":  op,
		"request_id": uuid.New().String(),
		"format":     format,
	})
	start := time.Now()

	ref, err := resolver.Resolve(rawInput)
	if err != nil {
		return nil, err
	}
	logger = logger.WithFields(logrus.Fields{
		"kind":     ref.Kind,
		"video_id": ref.CanonicalID,
	})

	if len(languages) == 0 {
		languages = p.languages
	}

	t, err := p.acquire(ctx, ref, languages, rawInput)
	if err != nil {
		return nil, p.mapContextError(ctx, op, err)
	}

	text := transcript.Normalize(t)
	if text == "" {
		return nil, errors.TranscriptUnavailable(op, errors.ReasonNoCaptions,
			stderrors.New("transcript is empty after normalization"))
	}
	logger.WithFields(logrus.Fields{
		"source": t.Source,
		"chars":  len(text),
	}).Info("Transcript ready")

	sum, err := p.summarizer.Summarize(ctx, text, format)
	if err != nil {
		return nil, p.mapContextError(ctx, op, err)
	}

	logger.WithFields(logrus.Fields{
		"chunks":   sum.ChunkCount,
		"degraded": sum.Degraded,
		"took":     time.Since(start).Round(time.Millisecond).String(),
	}).Info("Request complete")

	return &models.Result{
		TranscriptText: text,
		SummaryText:    sum.Body,
		SourceUsed:     t.Source,
		Language:       t.Language,
		Degraded:       sum.Degraded,
	}, nil
}

// acquire dispatches on the reference kind. Pasted text never touches the
// acquisition chain.
func (p *Pipeline) acquire(ctx context.Context, ref models.VideoReference, languages []string, rawInput string) (*models.Transcript, error) {
	if ref.Kind == models.RefRawText {
		return &models.Transcript{
			Segments: []models.TranscriptSegment{{Text: rawInput}},
			Source:   models.SourcePastedText,
			Language: firstLanguage(languages),
		}, nil
	}
	return p.acquirer.Acquire(ctx, ref, languages)
}

// mapContextError turns a blown deadline into the dedicated error kind even
// when a stage reported it as its own failure.
func (p *Pipeline) mapContextError(ctx context.Context, op string, err error) error {
	if errors.KindOf(err) == errors.KindDeadlineExceeded {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.DeadlineExceeded(op, err)
	}
	return err
}

func firstLanguage(languages []string) string {
	if len(languages) > 0 {
		return languages[0]
	}
	return "en"
}
