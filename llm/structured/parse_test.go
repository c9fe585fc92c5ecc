package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type verdict struct {
	Relevant  bool   `json:"relevant"`
	Reasoning string `json:"reasoning"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    verdict
		wantErr error
	}{
		{
			name:    "bare object",
			content: `{"relevant": true, "reasoning": "mentions roaming"}`,
			want:    verdict{Relevant: true, Reasoning: "mentions roaming"},
		},
		{
			name:    "fenced block with prose",
			content: "Here you go:\n```json\n{\"relevant\": false, \"reasoning\": \"off topic\"}\n```",
			want:    verdict{Relevant: false, Reasoning: "off topic"},
		},
		{
			name:    "no object",
			content: "I cannot answer that.",
			wantErr: ErrNoJSONObject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got verdict
			err := Decode(tt.content, &got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_MalformedObject(t *testing.T) {
	var got verdict
	err := Decode(`{"relevant": tru}`, &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoJSONObject)
}

func TestClamp_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Float64Range(-10, 10).Draw(t, "v")
		got := Clamp(v, 0, 1)
		if got < 0 || got > 1 {
			t.Fatalf("Clamp(%v) = %v out of range", v, got)
		}
		if v >= 0 && v <= 1 && got != v {
			t.Fatalf("Clamp(%v) changed an in-range value to %v", v, got)
		}
	})
}
