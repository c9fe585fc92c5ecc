package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/BaSui01/supportflow/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		msg       string
		wantCode  llm.ErrorCode
		retryable bool
	}{
		{http.StatusUnauthorized, "bad key", llm.ErrUnauthorized, false},
		{http.StatusForbidden, "nope", llm.ErrForbidden, false},
		{http.StatusTooManyRequests, "slow down", llm.ErrRateLimited, true},
		{http.StatusBadRequest, "You exceeded your current quota", llm.ErrQuotaExceeded, false},
		{http.StatusBadRequest, "invalid json", llm.ErrInvalidRequest, false},
		{http.StatusGatewayTimeout, "timeout", llm.ErrUpstreamTimeout, true},
		{http.StatusBadGateway, "bad gateway", llm.ErrUpstreamError, true},
		{529, "overloaded", llm.ErrModelOverloaded, true},
		{http.StatusInternalServerError, "boom", llm.ErrUpstreamError, true},
		{http.StatusNotFound, "missing", llm.ErrUpstreamError, false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := MapHTTPError(tt.status, tt.msg, "openai")
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.status, err.HTTPStatus)
			assert.Equal(t, "openai", err.Provider)
		})
	}
}

func TestMapHTTPError_Property_ServerErrorsRetryable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		status := rapid.IntRange(500, 599).Draw(t, "status")
		err := MapHTTPError(status, "x", "p")
		assert.True(t, err.Retryable, "status %d should be retryable", status)
	})
}

func TestMapTransportError(t *testing.T) {
	assert.ErrorIs(t, MapTransportError(context.Canceled, "p"), context.Canceled)

	var llmErr *llm.Error
	require.ErrorAs(t, MapTransportError(context.DeadlineExceeded, "p"), &llmErr)
	assert.Equal(t, llm.ErrUpstreamTimeout, llmErr.Code)

	require.ErrorAs(t, MapTransportError(errors.New("connection refused"), "p"), &llmErr)
	assert.Equal(t, llm.ErrUpstreamError, llmErr.Code)
	assert.True(t, llmErr.Retryable)
}

func TestReadErrorMessage(t *testing.T) {
	assert.Equal(t, "bad key (type: auth)",
		ReadErrorMessage(strings.NewReader(`{"error":{"message":"bad key","type":"auth"}}`)))
	assert.Equal(t, "plain failure", ReadErrorMessage(strings.NewReader("plain failure\n")))
}
