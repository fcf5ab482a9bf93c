// Package ratelimit holds the shared throttle and backoff policy applied to
// every outbound call to the video platform and the generation provider.
// The limiter is process-wide: its job is to bound the aggregate request
// rate, not the per-request rate, so one instance is constructed at startup
// and injected into every component that goes over the network.
package ratelimit

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter allows one call per interval with the given burst.
func NewLimiter(interval time.Duration, burst int) *Limiter {
	if interval <= 0 {
		interval = time.Second
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

// Wait blocks until a slot is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Backoff is an exponential backoff policy with random jitter. Delay grows
// by Factor per attempt until Max; Jitter adds up to that fraction of the
// delay on top so concurrent retries de-synchronize.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	Factor      float64
	Jitter      float64
	MaxAttempts int
}

// DefaultBackoff mirrors the retry shape used for the transcription script:
// 2s initial, doubling, capped at 30s.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:     2 * time.Second,
		Max:         30 * time.Second,
		Factor:      2.0,
		Jitter:      0.5,
		MaxAttempts: 3,
	}
}

// Delay returns the deterministic part of the wait before the given
// 1-based attempt's retry. It is non-decreasing in attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := b.Initial
	if initial <= 0 {
		initial = time.Second
	}
	factor := b.Factor
	if factor < 1 {
		factor = 2.0
	}
	d := time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

// Sleep waits Delay(attempt) plus jitter, returning early with ctx.Err()
// if the context is cancelled.
func (b Backoff) Sleep(ctx context.Context, attempt int) error {
	d := b.Delay(attempt)
	if b.Jitter > 0 {
		d += time.Duration(rand.Float64() * b.Jitter * float64(d))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
