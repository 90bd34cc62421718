package videogen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyRateLimit(t *testing.T) {
	raws := []string{
		"gemini status 429 RESOURCE_EXHAUSTED: quota exceeded",
		`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`,
		"prefix 429 something RESOURCE_EXHAUSTED and Requested entity was not found too",
	}
	for _, raw := range raws {
		classified := Classify("veo-2.0-generate-001", errors.New(raw))
		if classified.Kind != KindRateLimit {
			t.Fatalf("kind for %q = %s, want rate_limit", raw, classified.Kind)
		}
		if classified.Message != quotaGuidance {
			t.Fatalf("message = %q, want the fixed quota guidance", classified.Message)
		}
		if classified.Cause == nil || classified.Cause.Error() != raw {
			t.Fatalf("cause not preserved for %q", raw)
		}
	}
}

func TestClassifyNotFoundNamesModel(t *testing.T) {
	err := errors.New("gemini status 404 NOT_FOUND: Requested entity was not found.")
	classified := Classify("veo-2.0-generate-001", err)
	if classified.Kind != KindNotFound {
		t.Fatalf("kind = %s, want not_found", classified.Kind)
	}
	if !strings.Contains(classified.Message, "veo-2.0-generate-001") {
		t.Fatalf("message %q should name the model", classified.Message)
	}
}

func TestClassifyExtractsInnerMessage(t *testing.T) {
	raw := `rpc failure: {"error":{"code":500,"message":"Internal error encountered.","status":"INTERNAL"}}`
	classified := Classify("m", errors.New(raw))
	if classified.Kind != KindUnknown {
		t.Fatalf("kind = %s, want unknown", classified.Kind)
	}
	if classified.Message != "Internal error encountered." {
		t.Fatalf("message = %q, want the inner message", classified.Message)
	}
}

func TestClassifySentinels(t *testing.T) {
	tests := []struct {
		err  error
		kind ErrorKind
	}{
		{ErrPromptRequired, KindValidation},
		{ErrInvalidAspect, KindValidation},
		{ErrPollTimeout, KindTimeout},
		{context.DeadlineExceeded, KindTimeout},
		{ErrEmptyResult, KindUnknown},
		{fmt.Errorf("wrapped: %w", ErrPollTimeout), KindTimeout},
		{&DownloadError{Index: 2, Err: errors.New("status 500")}, KindDownload},
		{errors.New("something else entirely"), KindUnknown},
	}
	for _, tc := range tests {
		classified := Classify("m", tc.err)
		if classified.Kind != tc.kind {
			t.Fatalf("Classify(%v) kind = %s, want %s", tc.err, classified.Kind, tc.kind)
		}
		if classified.Cause == nil {
			t.Fatalf("Classify(%v) lost its cause", tc.err)
		}
	}
}

func TestClassifyDownloadErrorNumbersFromOne(t *testing.T) {
	classified := Classify("m", &DownloadError{Index: 0, Err: errors.New("boom")})
	if !strings.Contains(classified.Message, "video 1") {
		t.Fatalf("message = %q, want it to reference video 1", classified.Message)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	err := errors.New("gemini status 429 RESOURCE_EXHAUSTED: quota")
	first := Classify("m", err)
	for i := 0; i < 5; i++ {
		again := Classify("m", err)
		if again.Kind != first.Kind || again.Message != first.Message {
			t.Fatalf("classification changed between calls")
		}
	}
}

func TestClassifyNilAndAlreadyClassified(t *testing.T) {
	if Classify("m", nil) != nil {
		t.Fatalf("nil error should classify to nil")
	}

	original := &ClassifiedError{Kind: KindDownload, Message: "once"}
	again := Classify("m", fmt.Errorf("outer: %w", original))
	if again != original {
		t.Fatalf("already classified errors must pass through unchanged")
	}
}
