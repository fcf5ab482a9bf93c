package captions

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"ytbrief/errors"
	"ytbrief/models"
	"ytbrief/ratelimit"
)

type fakeStrategy struct {
	name    string
	source  models.TranscriptSource
	calls   int
	attempt func(call int) (*models.Transcript, error)
}

func (f *fakeStrategy) Name() string                    { return f.name }
func (f *fakeStrategy) Source() models.TranscriptSource { return f.source }

func (f *fakeStrategy) Attempt(ctx context.Context, ref models.VideoReference, languages []string) (*models.Transcript, error) {
	f.calls++
	return f.attempt(f.calls)
}

type fakeCache struct {
	entries map[string]*models.Transcript
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*models.Transcript{}}
}

func (c *fakeCache) Get(ctx context.Context, videoID, language string) (*models.Transcript, bool, error) {
	t, ok := c.entries[videoID+"/"+language]
	return t, ok, nil
}

func (c *fakeCache) GetAny(ctx context.Context, videoID string) (*models.Transcript, bool, error) {
	for key, t := range c.entries {
		if strings.HasPrefix(key, videoID+"/") {
			return t, true, nil
		}
	}
	return nil, false, nil
}

func (c *fakeCache) Put(ctx context.Context, videoID, language string, t *models.Transcript, ttl time.Duration) error {
	c.puts++
	c.entries[videoID+"/"+language] = t
	return nil
}

func testChainConfig() Config {
	return Config{
		MaxAttempts: 3,
		Backoff: ratelimit.Backoff{
			Initial: time.Millisecond,
			Max:     2 * time.Millisecond,
			Factor:  2.0,
		},
		CacheTTL: time.Hour,
	}
}

func testLimiter() *ratelimit.Limiter {
	return ratelimit.NewLimiter(time.Microsecond, 100)
}

func ytRef() models.VideoReference {
	return models.VideoReference{
		RawInput:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		CanonicalID: "dQw4w9WgXcQ",
		Kind:        models.RefYouTube,
	}
}

func goodTranscript(source models.TranscriptSource) *models.Transcript {
	return &models.Transcript{
		Segments: []models.TranscriptSegment{{Text: "hello"}},
		Source:   source,
		Language: "en",
	}
}

func TestChainFirstStrategyWins(t *testing.T) {
	first := &fakeStrategy{
		name:   "first",
		source: models.SourceOfficialCaptions,
		attempt: func(int) (*models.Transcript, error) {
			return goodTranscript(models.SourceOfficialCaptions), nil
		},
	}
	second := &fakeStrategy{
		name:   "second",
		source: models.SourceScrapeAPI,
		attempt: func(int) (*models.Transcript, error) {
			t := goodTranscript(models.SourceScrapeAPI)
			return t, nil
		},
	}
	cache := newFakeCache()
	chain := NewChain([]Strategy{first, second}, testLimiter(), cache, testChainConfig())

	got, err := chain.Acquire(context.Background(), ytRef(), []string{"en"})
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if got.Source != models.SourceOfficialCaptions {
		t.Errorf("Source = %v, want the first strategy's", got.Source)
	}
	if first.calls != 1 {
		t.Errorf("first strategy called %d times, want 1", first.calls)
	}
	if second.calls != 0 {
		t.Errorf("second strategy called %d times, want 0", second.calls)
	}
	if cache.puts != 1 {
		t.Errorf("cache.puts = %d, want 1", cache.puts)
	}
}

func TestChainTerminalFailureSkipsRetries(t *testing.T) {
	failing := &fakeStrategy{
		name:   "failing",
		source: models.SourceOfficialCaptions,
		attempt: func(int) (*models.Transcript, error) {
			return nil, Terminal(errors.ReasonNoCaptions, stderrors.New("captions disabled"))
		},
	}
	fallback := &fakeStrategy{
		name:   "fallback",
		source: models.SourceScrapeAPI,
		attempt: func(int) (*models.Transcript, error) {
			return goodTranscript(models.SourceScrapeAPI), nil
		},
	}
	chain := NewChain([]Strategy{failing, fallback}, testLimiter(), nil, testChainConfig())

	got, err := chain.Acquire(context.Background(), ytRef(), []string{"en"})
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if failing.calls != 1 {
		t.Errorf("terminal failure was retried: %d calls", failing.calls)
	}
	if got.Source != models.SourceScrapeAPI {
		t.Errorf("Source = %v, want the fallback's", got.Source)
	}
}

func TestChainTransientFailureRetriesThenFallsThrough(t *testing.T) {
	flaky := &fakeStrategy{
		name:   "flaky",
		source: models.SourceOfficialCaptions,
		attempt: func(int) (*models.Transcript, error) {
			return nil, Transient(errors.ReasonRateLimited, stderrors.New("429"))
		},
	}
	fallback := &fakeStrategy{
		name:   "fallback",
		source: models.SourceScrapeAPI,
		attempt: func(int) (*models.Transcript, error) {
			return goodTranscript(models.SourceScrapeAPI), nil
		},
	}
	chain := NewChain([]Strategy{flaky, fallback}, testLimiter(), nil, testChainConfig())

	got, err := chain.Acquire(context.Background(), ytRef(), []string{"en"})
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if flaky.calls != 3 {
		t.Errorf("transient failure retried %d times, want 3", flaky.calls)
	}
	if got.Source != models.SourceScrapeAPI {
		t.Errorf("Source = %v, want the fallback's", got.Source)
	}
}

func TestChainRecoversWithinRetryBudget(t *testing.T) {
	flaky := &fakeStrategy{
		name:   "flaky",
		source: models.SourceOfficialCaptions,
		attempt: func(call int) (*models.Transcript, error) {
			if call < 3 {
				return nil, Transient(errors.ReasonUnknown, stderrors.New("503"))
			}
			return goodTranscript(models.SourceOfficialCaptions), nil
		},
	}
	chain := NewChain([]Strategy{flaky}, testLimiter(), nil, testChainConfig())

	got, err := chain.Acquire(context.Background(), ytRef(), []string{"en"})
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if flaky.calls != 3 {
		t.Errorf("strategy called %d times, want 3", flaky.calls)
	}
	if got.Source != models.SourceOfficialCaptions {
		t.Errorf("Source = %v", got.Source)
	}
}

func TestChainAllFailReportsTerminalReason(t *testing.T) {
	noCaptions := &fakeStrategy{
		name:   "no-captions",
		source: models.SourceOfficialCaptions,
		attempt: func(int) (*models.Transcript, error) {
			return nil, Terminal(errors.ReasonNoCaptions, stderrors.New("no tracks"))
		},
	}
	rateLimited := &fakeStrategy{
		name:   "limited",
		source: models.SourceScrapeAPI,
		attempt: func(int) (*models.Transcript, error) {
			return nil, Transient(errors.ReasonRateLimited, stderrors.New("429"))
		},
	}
	chain := NewChain([]Strategy{noCaptions, rateLimited}, testLimiter(), nil, testChainConfig())

	_, err := chain.Acquire(context.Background(), ytRef(), []string{"en"})
	if err == nil {
		t.Fatal("expected an error when every strategy fails")
	}
	if !errors.IsTranscriptUnavailable(err) {
		t.Fatalf("expected transcript_unavailable, got %v", err)
	}
	if got := errors.ReasonOf(err); got != errors.ReasonNoCaptions {
		t.Errorf("ReasonOf = %v, want the terminal reason %v", got, errors.ReasonNoCaptions)
	}
}

func TestChainEmptyTranscriptIsTerminal(t *testing.T) {
	empty := &fakeStrategy{
		name:   "empty",
		source: models.SourceOfficialCaptions,
		attempt: func(int) (*models.Transcript, error) {
			return &models.Transcript{Source: models.SourceOfficialCaptions}, nil
		},
	}
	fallback := &fakeStrategy{
		name:   "fallback",
		source: models.SourceScrapeAPI,
		attempt: func(int) (*models.Transcript, error) {
			return goodTranscript(models.SourceScrapeAPI), nil
		},
	}
	chain := NewChain([]Strategy{empty, fallback}, testLimiter(), nil, testChainConfig())

	got, err := chain.Acquire(context.Background(), ytRef(), []string{"en"})
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if empty.calls != 1 {
		t.Errorf("empty transcript was retried: %d calls", empty.calls)
	}
	if got.Source != models.SourceScrapeAPI {
		t.Errorf("Source = %v, want the fallback's", got.Source)
	}
}

func TestChainCacheHitSkipsStrategies(t *testing.T) {
	strategy := &fakeStrategy{
		name:   "network",
		source: models.SourceOfficialCaptions,
		attempt: func(int) (*models.Transcript, error) {
			return goodTranscript(models.SourceOfficialCaptions), nil
		},
	}
	cache := newFakeCache()
	cache.entries["dQw4w9WgXcQ/en"] = goodTranscript(models.SourceScrapeAPI)

	chain := NewChain([]Strategy{strategy}, testLimiter(), cache, testChainConfig())

	got, err := chain.Acquire(context.Background(), ytRef(), []string{"en"})
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if strategy.calls != 0 {
		t.Errorf("strategy called %d times on a cache hit, want 0", strategy.calls)
	}
	if got.Source != models.SourceScrapeAPI {
		t.Errorf("Source = %v, want the cached transcript's", got.Source)
	}
}

func TestChainCacheHitOnSubstitutedLanguage(t *testing.T) {
	substituted := goodTranscript(models.SourceOfficialCaptions)
	substituted.Language = "de"

	strategy := &fakeStrategy{
		name:   "network",
		source: models.SourceOfficialCaptions,
		attempt: func(int) (*models.Transcript, error) {
			return substituted, nil
		},
	}
	cache := newFakeCache()
	chain := NewChain([]Strategy{strategy}, testLimiter(), cache, testChainConfig())

	// First acquisition: no "en" track exists, the strategy substitutes
	// "de" and the chain caches it under that language.
	first, err := chain.Acquire(context.Background(), ytRef(), []string{"en"})
	if err != nil {
		t.Fatalf("first Acquire() error: %v", err)
	}
	if first.Language != "de" {
		t.Fatalf("Language = %q, want the substituted de", first.Language)
	}

	second, err := chain.Acquire(context.Background(), ytRef(), []string{"en"})
	if err != nil {
		t.Fatalf("second Acquire() error: %v", err)
	}
	if strategy.calls != 1 {
		t.Errorf("strategy called %d times across two Acquires, want 1 (second should be a cache hit)", strategy.calls)
	}
	if second.Language != "de" {
		t.Errorf("second Language = %q, want the cached de transcript", second.Language)
	}
}

func TestChainRawTextIsNeverCached(t *testing.T) {
	strategy := &fakeStrategy{
		name:   "any",
		source: models.SourcePastedText,
		attempt: func(int) (*models.Transcript, error) {
			return goodTranscript(models.SourcePastedText), nil
		},
	}
	cache := newFakeCache()
	chain := NewChain([]Strategy{strategy}, testLimiter(), cache, testChainConfig())

	ref := models.VideoReference{RawInput: "some pasted text", Kind: models.RefRawText}
	if _, err := chain.Acquire(context.Background(), ref, []string{"en"}); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if cache.puts != 0 {
		t.Errorf("cache.puts = %d, raw text must not be cached", cache.puts)
	}
}

func TestChainCancelledContext(t *testing.T) {
	strategy := &fakeStrategy{
		name:   "slow",
		source: models.SourceOfficialCaptions,
		attempt: func(int) (*models.Transcript, error) {
			return nil, Transient(errors.ReasonUnknown, stderrors.New("timeout"))
		},
	}
	chain := NewChain([]Strategy{strategy}, testLimiter(), nil, testChainConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.Acquire(ctx, ytRef(), []string{"en"})
	if err == nil {
		t.Fatal("expected an error with a cancelled context")
	}
	if !errors.IsDeadlineExceeded(err) {
		t.Errorf("expected deadline_exceeded, got %v", err)
	}
}
