// Package summarize implements chunked map-reduce summarization: long
// transcripts are split into bounded chunks, each chunk is summarized
// independently, and the concatenated partials are fused in one final
// call. Texts that fit the input budget skip the chunking machinery
// entirely.
package summarize

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"ytbrief/errors"
	"ytbrief/models"
	"ytbrief/ratelimit"
)

// omittedPlaceholder stands in for a chunk whose summarization failed
// after retries; the job continues and the result is flagged degraded.
const omittedPlaceholder = "[Content omitted: this part of the transcript could not be summarized.]"

// partialSeparator joins map-phase outputs for the reduce call.
const partialSeparator = "\n\n---\n\n"

type Config struct {
	// MaxInputChars is the largest text sent in one call; longer input
	// goes through map-reduce. Default 160000.
	MaxInputChars int
	// MaxChunkChars bounds each map chunk. Default 12000.
	MaxChunkChars int
	// ChunkRetries is the number of extra attempts per failed call.
	ChunkRetries int
	// Concurrency bounds parallel map calls; 1 runs sequentially.
	Concurrency int
	// MaxRecursionDepth bounds re-chunking of oversized reduce input.
	MaxRecursionDepth int
	MaxOutputTokens   int
}

func (c *Config) fillDefaults() {
	if c.MaxInputChars < 1 {
		c.MaxInputChars = 160000
	}
	if c.MaxChunkChars < 1 {
		c.MaxChunkChars = 12000
	}
	if c.ChunkRetries < 0 {
		c.ChunkRetries = 2
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.MaxRecursionDepth < 1 {
		c.MaxRecursionDepth = 2
	}
	if c.MaxOutputTokens < 1 {
		c.MaxOutputTokens = 4000
	}
}

type Summarizer struct {
	completer Completer
	backoff   ratelimit.Backoff
	cfg       Config
	logger    *logrus.Logger
}

func New(completer Completer, backoff ratelimit.Backoff, cfg Config) *Summarizer {
	cfg.fillDefaults()
	if backoff.Initial == 0 {
		backoff = ratelimit.DefaultBackoff()
	}
	return &Summarizer{
		completer: completer,
		backoff:   backoff,
		cfg:       cfg,
		logger:    logrus.StandardLogger(),
	}
}

func (s *Summarizer) Summarize(ctx context.Context, text string, format models.SummaryFormat) (*models.FinalSummary, error) {
	return s.summarize(ctx, text, format, 0)
}

func (s *Summarizer) summarize(ctx context.Context, text string, format models.SummaryFormat, depth int) (*models.FinalSummary, error) {
	const op = "summarize.Summarizer.Summarize"
	logger := s.logger.WithFields(logrus.Fields{
		"operation": op,
		"format":    format,
		"chars":     len(text),
		"depth":     depth,
	})

	// Common case: the whole text fits in one call.
	if len(text) <= s.cfg.MaxInputChars {
		body, err := s.completeWithRetry(ctx, directPrompt(format, text))
		if err != nil {
			return nil, s.wrapCompletionError(ctx, op, err)
		}
		return &models.FinalSummary{
			Format:        format,
			Body:          body,
			TokenEstimate: estimateTokens(body),
			ChunkCount:    1,
		}, nil
	}

	if depth >= s.cfg.MaxRecursionDepth {
		return nil, errors.SummaryTooLarge(op,
			stderrors.New("partial summaries still exceed the input budget at maximum re-chunking depth"))
	}

	chunks := splitText(text, s.cfg.MaxChunkChars)
	logger.WithField("chunks", len(chunks)).Info("Summarizing in chunks")

	partials, degraded := s.mapChunks(ctx, chunks, format)
	if err := ctx.Err(); err != nil {
		return nil, errors.DeadlineExceeded(op, err)
	}

	// Reassembly is by chunk index, never completion order.
	joined := joinPartials(partials)

	if len(joined) > s.cfg.MaxInputChars {
		sub, err := s.summarize(ctx, joined, format, depth+1)
		if err != nil {
			return nil, err
		}
		return &models.FinalSummary{
			Format:        format,
			Body:          sub.Body,
			TokenEstimate: sub.TokenEstimate,
			ChunkCount:    len(chunks),
			Degraded:      degraded || sub.Degraded,
		}, nil
	}

	body, err := s.completeWithRetry(ctx, reducePrompt(format, joined))
	if err != nil {
		return nil, s.wrapCompletionError(ctx, op, err)
	}

	return &models.FinalSummary{
		Format:        format,
		Body:          body,
		TokenEstimate: estimateTokens(body),
		ChunkCount:    len(chunks),
		Degraded:      degraded,
	}, nil
}

// mapChunks summarizes every chunk with bounded concurrency. A chunk that
// still fails after retries becomes a placeholder instead of aborting the
// job.
func (s *Summarizer) mapChunks(ctx context.Context, chunks []models.SummaryChunk, format models.SummaryFormat) ([]models.PartialSummary, bool) {
	partials := make([]models.PartialSummary, len(chunks))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		degraded bool
	)
	sem := make(chan struct{}, s.cfg.Concurrency)

	for _, chunk := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(chunk models.SummaryChunk) {
			defer wg.Done()
			defer func() { <-sem }()

			text, err := s.completeWithRetry(ctx, chunkPrompt(format, chunk.Index, len(chunks), chunk.Text))
			if err != nil {
				s.logger.WithError(err).WithField("chunk", chunk.Index).
					Warn("Chunk summarization failed after retries, omitting")
				text = omittedPlaceholder
				mu.Lock()
				degraded = true
				mu.Unlock()
			}
			partials[chunk.Index] = models.PartialSummary{
				ChunkIndex: chunk.Index,
				Text:       strings.TrimSpace(text),
			}
		}(chunk)
	}
	wg.Wait()

	return partials, degraded
}

func (s *Summarizer) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	attempts := s.cfg.ChunkRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := s.completer.Complete(ctx, prompt, s.cfg.MaxOutputTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < attempts {
			if err := s.backoff.Sleep(ctx, attempt); err != nil {
				return "", err
			}
		}
	}
	return "", lastErr
}

func (s *Summarizer) wrapCompletionError(ctx context.Context, op string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) || ctx.Err() != nil {
		return errors.DeadlineExceeded(op, err)
	}
	return errors.SummarizationFailed(op, err)
}

func joinPartials(partials []models.PartialSummary) string {
	parts := make([]string, len(partials))
	for i, p := range partials {
		parts[i] = p.Text
	}
	return strings.Join(parts, partialSeparator)
}

// estimateTokens is the usual rough 4-characters-per-token heuristic.
func estimateTokens(text string) int {
	return len(text) / 4
}
