// Package captions acquires transcripts through an ordered set of
// strategies: official caption tracks, the player-API scrape tier, and
// audio download plus speech-to-text. The chain driver retries transient
// failures with backoff and falls through on terminal ones.
package captions

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"ytbrief/errors"
	"ytbrief/models"
)

// Strategy is one acquisition tier. Attempt either returns a non-empty
// transcript or an *AttemptError classifying the failure.
type Strategy interface {
	Name() string
	Source() models.TranscriptSource
	Attempt(ctx context.Context, ref models.VideoReference, languages []string) (*models.Transcript, error)
}

// AttemptError classifies a strategy failure. Terminal failures (private
// video, captions disabled) skip the remaining retries for the strategy;
// transient ones (rate limit, timeout, 5xx) are retried with backoff.
type AttemptError struct {
	Terminal bool
	Reason   errors.Reason
	Err      error
}

func (e *AttemptError) Error() string {
	kind := "transient"
	if e.Terminal {
		kind = "terminal"
	}
	return fmt.Sprintf("%s failure (%s): %v", kind, e.Reason, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

func Transient(reason errors.Reason, err error) *AttemptError {
	return &AttemptError{Terminal: false, Reason: reason, Err: err}
}

func Terminal(reason errors.Reason, err error) *AttemptError {
	return &AttemptError{Terminal: true, Reason: reason, Err: err}
}

// classify maps any attempt error onto the terminal/transient split.
// Unclassified errors are treated as transient so the retry budget, not a
// guess, decides when to give up.
func classify(err error) (terminal bool, reason errors.Reason) {
	var ae *AttemptError
	if stderrors.As(err, &ae) {
		return ae.Terminal, ae.Reason
	}
	return false, errors.ReasonUnknown
}

// classifyHTTPStatus maps an upstream status code onto an attempt error,
// or nil for 200.
func classifyHTTPStatus(code int) *AttemptError {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return Transient(errors.ReasonRateLimited, fmt.Errorf("upstream returned %d", code))
	case code == http.StatusForbidden:
		return Terminal(errors.ReasonPrivate, fmt.Errorf("upstream returned %d", code))
	case code == http.StatusNotFound:
		return Terminal(errors.ReasonPrivate, fmt.Errorf("upstream returned %d", code))
	case code >= 500:
		return Transient(errors.ReasonUnknown, fmt.Errorf("upstream returned %d", code))
	default:
		return Transient(errors.ReasonUnknown, fmt.Errorf("upstream returned %d", code))
	}
}
