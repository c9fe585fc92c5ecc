package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	_, ok := TraceID(ctx)
	assert.False(t, ok)

	ctx = WithTraceID(ctx, "req-1")
	ctx = WithRunID(ctx, "run-1")
	ctx = WithNode(ctx, "grade_documents")

	v, ok := TraceID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", v)

	v, ok = RunID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "run-1", v)

	v, ok = Node(ctx)
	assert.True(t, ok)
	assert.Equal(t, "grade_documents", v)

	ctx = WithSubject(ctx, "agent-7")
	v, ok = Subject(ctx)
	assert.True(t, ok)
	assert.Equal(t, "agent-7", v)
}

func TestContextKeys_EmptyValue(t *testing.T) {
	ctx := WithRunID(context.Background(), "")
	_, ok := RunID(ctx)
	assert.False(t, ok)
}
