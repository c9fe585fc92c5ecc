package workflow

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/BaSui01/supportflow/rag"
)

func TestFormatContext(t *testing.T) {
	got := FormatContext([]rag.Passage{
		{Content: "Roaming is free.", Source: "roaming.md"},
		{Content: "No source."},
	})
	assert.Equal(t, "[Document 1] (Source: roaming.md)\nRoaming is free.\n\n[Document 2] (Source: unknown)\nNo source.", got)
	assert.Empty(t, FormatContext(nil))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", truncateRunes("héllo wörld", 5))
	assert.Equal(t, "短文本", truncateRunes("短文本", 10))
	assert.Equal(t, "数据", truncateRunes("数据漫游", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 0))
}

func TestTruncateRunes_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		limit := rapid.IntRange(1, 64).Draw(t, "limit")

		got := truncateRunes(s, limit)
		if !utf8.ValidString(s) {
			return
		}
		if !utf8.ValidString(got) {
			t.Fatalf("truncation produced invalid UTF-8: %q", got)
		}
		if n := utf8.RuneCountInString(got); n > limit {
			t.Fatalf("got %d runes, limit %d", n, limit)
		}
		if !strings.HasPrefix(s, got) {
			t.Fatalf("%q is not a prefix of %q", got, s)
		}
	})
}

func TestGenerateUserPrompt_StrictAttempt(t *testing.T) {
	req := GenerateRequest{Question: "q", Passages: passages("a.md"), Strict: true, Attempt: 2, MaxAttempts: 3}
	assert.Contains(t, generateUserPrompt(req), "This is attempt 2 of 3")

	req.Strict = false
	assert.NotContains(t, generateUserPrompt(req), "attempt")
}
