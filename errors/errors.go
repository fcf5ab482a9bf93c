// Package errors defines the typed failures the pipeline surfaces to its
// caller. Every terminal error carries an operation tag, a caller-facing
// message, and an actionable suggestion; raw upstream errors are wrapped
// as causes and never used as the message itself.
package errors

import (
	stderrors "errors"
	"fmt"
)

type Kind int

const (
	KindInvalidReference Kind = iota + 1
	KindTranscriptUnavailable
	KindSummarizationFailed
	KindSummaryTooLarge
	KindDeadlineExceeded
)

func (k Kind) String() string {
	switch k {
	case KindInvalidReference:
		return "invalid_reference"
	case KindTranscriptUnavailable:
		return "transcript_unavailable"
	case KindSummarizationFailed:
		return "summarization_failed"
	case KindSummaryTooLarge:
		return "summary_too_large"
	case KindDeadlineExceeded:
		return "deadline_exceeded"
	}
	return "unknown"
}

// Reason narrows a transcript_unavailable failure for the caller.
type Reason string

const (
	ReasonNoCaptions  Reason = "NO_CAPTIONS"
	ReasonBlocked     Reason = "BLOCKED"
	ReasonPrivate     Reason = "PRIVATE"
	ReasonRateLimited Reason = "RATE_LIMITED"
	ReasonUnknown     Reason = "UNKNOWN"
)

type Error struct {
	Kind       Kind
	Reason     Reason
	Message    string
	Suggestion string
	Op         string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func InvalidReference(op string, err error, message string) *Error {
	return &Error{
		Kind:       KindInvalidReference,
		Message:    message,
		Suggestion: "Check that the input is a full YouTube URL, a direct media URL, or pasted transcript text.",
		Op:         op,
		Err:        err,
	}
}

func TranscriptUnavailable(op string, reason Reason, err error) *Error {
	if reason == "" {
		reason = ReasonUnknown
	}
	return &Error{
		Kind:       KindTranscriptUnavailable,
		Reason:     reason,
		Message:    "Could not obtain a transcript for this video",
		Suggestion: suggestionFor(reason),
		Op:         op,
		Err:        err,
	}
}

func SummarizationFailed(op string, err error) *Error {
	return &Error{
		Kind:       KindSummarizationFailed,
		Message:    "Summary generation failed after retries",
		Suggestion: "Retry later; if the problem persists, check the generation provider status and API quota.",
		Op:         op,
		Err:        err,
	}
}

func SummaryTooLarge(op string, err error) *Error {
	return &Error{
		Kind:       KindSummaryTooLarge,
		Message:    "Transcript is too large to summarize",
		Suggestion: "Split the source into shorter parts, or raise the chunk size limits in the configuration.",
		Op:         op,
		Err:        err,
	}
}

func DeadlineExceeded(op string, err error) *Error {
	return &Error{
		Kind:       KindDeadlineExceeded,
		Message:    "Processing did not finish before the deadline",
		Suggestion: "Retry with a longer timeout, or try a shorter video.",
		Op:         op,
		Err:        err,
	}
}

func suggestionFor(reason Reason) string {
	switch reason {
	case ReasonNoCaptions:
		return "This video has no captions. Enable the audio fallback, or paste the transcript text directly."
	case ReasonBlocked:
		return "The video platform is blocking automated requests right now. Wait a few minutes and retry."
	case ReasonPrivate:
		return "The video is private, deleted, or region locked. Verify the URL opens in a browser."
	case ReasonRateLimited:
		return "Rate limited by the video platform. Retry after a short wait."
	default:
		return "Retry later; if the problem persists, paste the transcript text directly."
	}
}

// KindOf returns the Kind of err, or 0 when err is not one of ours.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ReasonOf returns the reason code attached to err, or ReasonUnknown.
func ReasonOf(err error) Reason {
	var e *Error
	if stderrors.As(err, &e) && e.Reason != "" {
		return e.Reason
	}
	return ReasonUnknown
}

func IsInvalidReference(err error) bool { return KindOf(err) == KindInvalidReference }

func IsTranscriptUnavailable(err error) bool { return KindOf(err) == KindTranscriptUnavailable }

func IsSummarizationFailed(err error) bool { return KindOf(err) == KindSummarizationFailed }

func IsSummaryTooLarge(err error) bool { return KindOf(err) == KindSummaryTooLarge }

func IsDeadlineExceeded(err error) bool { return KindOf(err) == KindDeadlineExceeded }
