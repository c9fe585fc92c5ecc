package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/supportflow/types"
)

func TestState_ApplyMergesPartialUpdates(t *testing.T) {
	s := NewState("how much is roaming?", 3)

	require.NoError(t, s.Apply(Update{Retrieved: passages("a.md", "b.md")}))
	require.NoError(t, s.Apply(Update{Relevant: passages("a.md")}))

	draft := "Roaming is free."
	conf := 0.8
	require.NoError(t, s.Apply(Update{Draft: &draft, Confidence: &conf, Sources: []string{"a.md"}}))

	assert.Len(t, s.RetrievedPassages, 2)
	assert.Len(t, s.RelevantPassages, 1)
	assert.Equal(t, draft, s.DraftAnswer)
	require.NotNil(t, s.Confidence)
	assert.Equal(t, 0.8, *s.Confidence)
	assert.False(t, s.IsGrounded)
	assert.Equal(t, uint64(3), s.Version)
}

func TestState_RetryCountOnlyIncrements(t *testing.T) {
	s := NewState("q", 3)
	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Apply(Update{IncrementRetry: true}))
		assert.Equal(t, i, s.RetryCount)
	}
	require.NoError(t, s.Apply(Update{}))
	assert.Equal(t, 3, s.RetryCount)
}

func TestState_FinalIsWriteOnce(t *testing.T) {
	s := NewState("q", 1)
	require.NoError(t, s.Apply(Update{Final: &Final{Answer: "first", Status: StatusSuccess}}))
	version := s.Version

	err := s.Apply(Update{Final: &Final{Answer: "second", Status: StatusValidationFailed}})
	assert.True(t, errors.Is(err, ErrFinalized))
	assert.Equal(t, types.ErrInvalidTransition, types.GetErrorCode(err))

	assert.Equal(t, "first", s.FinalAnswer)
	assert.Equal(t, StatusSuccess, s.FinalStatus)
	assert.Equal(t, version, s.Version)
	assert.True(t, s.Finalized())
}

func TestState_RejectsInvalidStatus(t *testing.T) {
	s := NewState("q", 1)
	err := s.Apply(Update{Final: &Final{Answer: "x", Status: "done"}})
	require.Error(t, err)
	assert.False(t, s.Finalized())
}

func TestState_RetrievedOnce(t *testing.T) {
	s := NewState("q", 1)
	require.NoError(t, s.Apply(Update{Retrieved: passages("a.md")}))

	draft := "changed"
	err := s.Apply(Update{Retrieved: passages("b.md"), Draft: &draft})
	require.Error(t, err)
	assert.Equal(t, "a.md", s.RetrievedPassages[0].Source)
	assert.Empty(t, s.DraftAnswer)
}
