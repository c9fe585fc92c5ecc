package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/supportflow/llm"
	"github.com/BaSui01/supportflow/rag"
)

func score(v float64) *float64 { return &v }

func passages(sources ...string) []rag.Passage {
	out := make([]rag.Passage, len(sources))
	for i, s := range sources {
		out[i] = rag.Passage{
			Content: "policy text from " + s,
			Source:  s,
			Score:   score(1 - float64(i)/10),
		}
	}
	return out
}

func staticRetriever(ps []rag.Passage) rag.Retriever {
	return rag.RetrieverFunc(func(ctx context.Context, q string, k int) ([]rag.Passage, error) {
		if len(ps) > k {
			return ps[:k], nil
		}
		return ps, nil
	})
}

// allRelevant 所有片段均相关
var allRelevant = GraderFunc(func(ctx context.Context, q string, p rag.Passage) (Grade, error) {
	return Grade{Relevant: true, Rationale: "on topic"}, nil
})

// noneRelevant 所有片段均不相关
var noneRelevant = GraderFunc(func(ctx context.Context, q string, p rag.Passage) (Grade, error) {
	return Grade{Relevant: false, Rationale: "off topic"}, nil
})

// countingGenerator 记录调用次数与请求
type countingGenerator struct {
	mu       sync.Mutex
	requests []GenerateRequest
}

func (g *countingGenerator) Generate(ctx context.Context, req GenerateRequest) (Draft, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return Draft{
		Answer:     fmt.Sprintf("draft %d", len(g.requests)),
		Confidence: 0.9,
	}, nil
}

// scriptedValidator 依次返回 verdicts，用尽后重复最后一个
type scriptedValidator struct {
	verdicts []bool
	calls    atomic.Int32
}

func (v *scriptedValidator) Validate(ctx context.Context, q, draft string, ps []rag.Passage) (Verdict, error) {
	i := int(v.calls.Add(1)) - 1
	if i >= len(v.verdicts) {
		i = len(v.verdicts) - 1
	}
	return Verdict{Grounded: v.verdicts[i], Rationale: "scripted"}, nil
}

func newTestEngine(t *testing.T, r rag.Retriever, g Grader, gen Generator, v Validator, mutate func(*Options), opts ...EngineOption) *Engine {
	t.Helper()
	o := DefaultOptions()
	if mutate != nil {
		mutate(&o)
	}
	opts = append([]EngineOption{WithLogger(zaptest.NewLogger(t))}, opts...)
	e, err := NewEngine(r, g, gen, v, o, opts...)
	require.NoError(t, err)
	return e
}

// scriptedProvider 依次返回预设响应或错误
type scriptedProvider struct {
	mu        sync.Mutex
	responses []scriptedResponse
	requests  []*llm.ChatRequest
}

type scriptedResponse struct {
	content string
	err     error
}

func (p *scriptedProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	r := p.responses[0]
	p.responses = p.responses[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &llm.ChatResponse{
		Model:   req.Model,
		Choices: []llm.ChatChoice{{Message: llm.Message{Role: llm.RoleAssistant, Content: r.content}}},
	}, nil
}

func (p *scriptedProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) lastSystemPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return ""
	}
	return p.requests[len(p.requests)-1].Messages[0].Content
}

func (p *scriptedProvider) lastUserPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return ""
	}
	return p.requests[len(p.requests)-1].Messages[1].Content
}

func countNodes(trail []StepRecord, node NodeID) int {
	n := 0
	for _, r := range trail {
		if r.Node == node {
			n++
		}
	}
	return n
}

func nodePath(trail []StepRecord) string {
	names := make([]string, len(trail))
	for i, r := range trail {
		names[i] = string(r.Node)
	}
	return strings.Join(names, ">")
}
