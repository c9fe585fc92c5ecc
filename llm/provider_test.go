package llm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstContent(t *testing.T) {
	tests := []struct {
		name    string
		resp    *ChatResponse
		want    string
		wantErr bool
	}{
		{name: "nil response", resp: nil, wantErr: true},
		{name: "no choices", resp: &ChatResponse{}, wantErr: true},
		{
			name: "first choice wins",
			resp: &ChatResponse{Choices: []ChatChoice{
				{Message: Message{Role: RoleAssistant, Content: "first"}},
				{Message: Message{Role: RoleAssistant, Content: "second"}},
			}},
			want: "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FirstContent(tt.resp)
			if tt.wantErr {
				require.Error(t, err)
				var llmErr *Error
				require.ErrorAs(t, err, &llmErr)
				assert.Equal(t, ErrEmptyResponse, llmErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := &Error{Code: ErrRateLimited, Retryable: true, Provider: "openai"}
	permanent := &Error{Code: ErrUnauthorized}

	assert.True(t, IsRetryable(retryable))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", retryable)))
	assert.False(t, IsRetryable(permanent))
	assert.False(t, IsRetryable(fmt.Errorf("plain")))

	assert.Equal(t, "openai [LLM_RATE_LIMITED]: ", retryable.Error())
}
