package videogen

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel failures produced by the orchestration stages. They are mapped to
// user-facing errors exactly once, in Classify.
var (
	ErrPromptRequired = errors.New("videogen: prompt or reference image is required")
	ErrInvalidAspect  = errors.New("videogen: unsupported aspect ratio")
	ErrPollTimeout    = errors.New("videogen: operation did not complete in time")
	ErrEmptyResult    = errors.New("videogen: operation finished without producing any video")
	ErrBusy           = errors.New("videogen: a generation is already in progress")
)

// ErrorKind buckets a failure for presentation and metrics.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindRateLimit  ErrorKind = "rate_limit"
	KindNotFound   ErrorKind = "not_found"
	KindTimeout    ErrorKind = "timeout"
	KindDownload   ErrorKind = "download"
	KindUnknown    ErrorKind = "unknown"
)

// ClassifiedError pairs a user-facing message with the raw diagnostic that
// produced it. The cause is preserved for logs and never shown as-is.
type ClassifiedError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ClassifiedError) Error() string { return e.Message }

func (e *ClassifiedError) Unwrap() error { return e.Cause }

// DownloadError marks a failed artifact retrieval after a successful job.
type DownloadError struct {
	URI   string
	Index int
	Err   error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("videogen: download artifact %d: %v", e.Index, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

const quotaGuidance = "API quota exhausted. Review your plan and billing details, or retry once the quota resets."

const notFoundMarker = "Requested entity was not found"

// innerMessagePattern extracts the message field from a JSON diagnostic that
// the API sometimes nests inside serialized error text.
var innerMessagePattern = regexp.MustCompile(`"message"\s*:\s*"((?:[^"\\]|\\.)+)"`)

// Classify maps a raw failure from any stage to a ClassifiedError. It is
// stateless and deterministic: the same input always yields the same result.
// The model identifier is only used to word not-found messages.
func Classify(model string, err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, ErrPromptRequired):
		return &ClassifiedError{Kind: KindValidation, Message: "Enter a prompt or attach a reference image to get started.", Cause: err}
	case errors.Is(err, ErrInvalidAspect):
		return &ClassifiedError{Kind: KindValidation, Message: "The requested aspect ratio is not supported.", Cause: err}
	case errors.Is(err, ErrPollTimeout), errors.Is(err, context.DeadlineExceeded):
		return &ClassifiedError{Kind: KindTimeout, Message: "Timed out waiting for the video job to finish. The job may still complete remotely; try again later.", Cause: err}
	case errors.Is(err, ErrEmptyResult):
		return &ClassifiedError{Kind: KindUnknown, Message: "The video job finished but produced no result.", Cause: err}
	}

	var download *DownloadError
	if errors.As(err, &download) {
		return &ClassifiedError{
			Kind:    KindDownload,
			Message: fmt.Sprintf("Failed to download generated video %d.", download.Index+1),
			Cause:   err,
		}
	}

	raw := err.Error()
	switch {
	case strings.Contains(raw, "429") && strings.Contains(raw, "RESOURCE_EXHAUSTED"):
		return &ClassifiedError{Kind: KindRateLimit, Message: quotaGuidance, Cause: err}
	case strings.Contains(raw, notFoundMarker):
		return &ClassifiedError{
			Kind:    KindNotFound,
			Message: fmt.Sprintf("Model %q was not found. It may be unavailable for your API key.", model),
			Cause:   err,
		}
	}

	if inner := extractInnerMessage(raw); inner != "" {
		return &ClassifiedError{Kind: KindUnknown, Message: inner, Cause: err}
	}
	return &ClassifiedError{Kind: KindUnknown, Message: raw, Cause: err}
}

func extractInnerMessage(raw string) string {
	match := innerMessagePattern.FindStringSubmatch(raw)
	if len(match) != 2 {
		return ""
	}
	inner := strings.ReplaceAll(match[1], `\"`, `"`)
	inner = strings.ReplaceAll(inner, `\\`, `\`)
	return strings.TrimSpace(inner)
}
