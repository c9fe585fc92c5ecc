package types

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("openai")

	if GetErrorCode(err) != ErrUpstreamError {
		t.Fatalf("expected code %s, got %s", ErrUpstreamError, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_WrappedLookup(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrRetrievalUnavailable, "qdrant down").WithRetryable(true)
	wrapped := fmt.Errorf("retrieve: %w", inner)

	if GetErrorCode(wrapped) != ErrRetrievalUnavailable {
		t.Fatalf("expected wrapped code lookup, got %q", GetErrorCode(wrapped))
	}
	if !IsRetryable(wrapped) {
		t.Fatalf("expected wrapped retryable lookup")
	}
	if GetErrorCode(errors.New("plain")) != "" {
		t.Fatalf("expected empty code for plain error")
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: ErrTimeout},
		{name: "canceled", err: fmt.Errorf("call: %w", context.Canceled), want: ErrCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromContext(tt.err)
			if got == nil || got.Code != tt.want {
				t.Fatalf("expected %s, got %v", tt.want, got)
			}
		})
	}

	if FromContext(errors.New("other")) != nil {
		t.Fatalf("expected nil for non-context error")
	}
}
