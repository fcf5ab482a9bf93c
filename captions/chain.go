package captions

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/sirupsen/logrus"

	"ytbrief/errors"
	"ytbrief/models"
	"ytbrief/ratelimit"
)

// Cache is what the chain needs from the transcript store. A nil cache
// disables memoization without affecting correctness.
type Cache interface {
	Get(ctx context.Context, videoID, language string) (*models.Transcript, bool, error)
	GetAny(ctx context.Context, videoID string) (*models.Transcript, bool, error)
	Put(ctx context.Context, videoID, language string, t *models.Transcript, ttl time.Duration) error
}

type Config struct {
	// MaxAttempts caps tries of one strategy across transient failures.
	MaxAttempts int
	Backoff     ratelimit.Backoff
	CacheTTL    time.Duration
}

// Chain drives the ordered strategies: retry a strategy with backoff while
// it fails transiently, move on when it fails terminally or exhausts its
// attempts, and stop at the first non-empty transcript.
type Chain struct {
	strategies []Strategy
	limiter    *ratelimit.Limiter
	cache      Cache
	cfg        Config
	logger     *logrus.Logger
}

func NewChain(strategies []Strategy, limiter *ratelimit.Limiter, cache Cache, cfg Config) *Chain {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff.Initial == 0 {
		cfg.Backoff = ratelimit.DefaultBackoff()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	return &Chain{
		strategies: strategies,
		limiter:    limiter,
		cache:      cache,
		cfg:        cfg,
		logger:     logrus.StandardLogger(),
	}
}

func (c *Chain) Acquire(ctx context.Context, ref models.VideoReference, languages []string) (*models.Transcript, error) {
	const op = "captions.Chain.Acquire"
	logger := c.logger.WithFields(logrus.Fields{
		"operation": op,
		"video_id":  ref.CanonicalID,
		"kind":      ref.Kind,
	})

	if t, ok := c.lookupCached(ctx, ref, languages, logger); ok {
		return t, nil
	}

	var (
		lastErr        error
		lastReason     = errors.ReasonUnknown
		terminalReason errors.Reason
	)

	for _, strategy := range c.strategies {
		slog := logger.WithField("strategy", strategy.Name())

		for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, errors.DeadlineExceeded(op, err)
			}

			t, err := strategy.Attempt(ctx, ref, languages)
			if err == nil {
				if t != nil && len(t.Segments) > 0 {
					slog.WithFields(logrus.Fields{
						"language": t.Language,
						"attempt":  attempt,
					}).Info("Transcript acquired")
					c.storeCached(ctx, ref, t, slog)
					return t, nil
				}
				err = Terminal(errors.ReasonNoCaptions,
					stderrors.New("strategy returned an empty transcript"))
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, errors.DeadlineExceeded(op, ctxErr)
			}

			terminal, reason := classify(err)
			lastErr = err
			lastReason = reason
			slog.WithError(err).WithFields(logrus.Fields{
				"attempt":  attempt,
				"terminal": terminal,
				"reason":   reason,
			}).Warn("Caption strategy attempt failed")

			if terminal {
				if terminalReason == "" {
					terminalReason = reason
				}
				break
			}
			if attempt < c.cfg.MaxAttempts {
				if err := c.cfg.Backoff.Sleep(ctx, attempt); err != nil {
					return nil, errors.DeadlineExceeded(op, err)
				}
			}
		}
	}

	reason := lastReason
	if terminalReason != "" {
		reason = terminalReason
	}
	return nil, errors.TranscriptUnavailable(op, reason, lastErr)
}

func cacheable(ref models.VideoReference) bool {
	return ref.CanonicalID != "" && ref.Kind != models.RefRawText
}

func (c *Chain) lookupCached(ctx context.Context, ref models.VideoReference, languages []string, logger *logrus.Entry) (*models.Transcript, bool) {
	if c.cache == nil || !cacheable(ref) {
		return nil, false
	}
	for _, lang := range languages {
		t, ok, err := c.cache.Get(ctx, ref.CanonicalID, lang)
		if err != nil {
			logger.WithError(err).WithField("language", lang).Warn("Cache lookup failed")
			continue
		}
		if ok {
			logger.WithField("language", lang).Info("Transcript cache hit")
			return t, true
		}
	}

	// A previous acquisition may have substituted a language outside the
	// preference list; that entry still spares the network round.
	t, ok, err := c.cache.GetAny(ctx, ref.CanonicalID)
	if err != nil {
		logger.WithError(err).Warn("Cache lookup failed")
		return nil, false
	}
	if ok {
		logger.WithField("language", t.Language).Info("Transcript cache hit on substituted language")
		return t, true
	}
	return nil, false
}

func (c *Chain) storeCached(ctx context.Context, ref models.VideoReference, t *models.Transcript, logger *logrus.Entry) {
	if c.cache == nil || !cacheable(ref) {
		return
	}
	if err := c.cache.Put(ctx, ref.CanonicalID, t.Language, t, c.cfg.CacheTTL); err != nil {
		logger.WithError(err).Warn("Failed to cache transcript")
	}
}
