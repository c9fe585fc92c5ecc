package supportflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/supportflow/config"
	"github.com/BaSui01/supportflow/llm"
	"github.com/BaSui01/supportflow/rag"
	"github.com/BaSui01/supportflow/types"
	"github.com/BaSui01/supportflow/workflow"
)

// jsonProvider 对所有请求返回同一段 JSON，同时满足评分、生成与校验的结构
type jsonProvider struct {
	calls atomic.Int32

	mu    sync.Mutex
	temps []float32
}

func (p *jsonProvider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.temps = append(p.temps, req.Temperature)
	p.mu.Unlock()
	return &llm.ChatResponse{
		Model: req.Model,
		Choices: []llm.ChatChoice{{Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: `{"relevant": true, "grounded": true, "answer": "Activate roaming in the app.", "confidence": 0.9, "reasoning": "ok"}`,
		}}},
	}, nil
}

func (p *jsonProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *jsonProvider) Name() string { return "json" }

func roamingRetriever() rag.Retriever {
	return rag.RetrieverFunc(func(context.Context, string, int) ([]rag.Passage, error) {
		return []rag.Passage{
			{Content: "Roaming is activated from the account page.", Source: "roaming.md"},
			{Content: "Roaming charges are billed daily.", Source: "billing.md"},
		}, nil
	})
}

type mapCache struct {
	mu    sync.Mutex
	items map[workflow.RunRequest]*workflow.Result
	puts  int
}

func newMapCache() *mapCache {
	return &mapCache{items: map[workflow.RunRequest]*workflow.Result{}}
}

func (c *mapCache) Get(_ context.Context, req workflow.RunRequest) (*workflow.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.items[req]
	if !ok {
		return nil, false
	}
	cp := *res
	cp.Cached = true
	return &cp, true
}

func (c *mapCache) Put(_ context.Context, req workflow.RunRequest, res *workflow.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if res.FinalStatus == workflow.StatusSuccess {
		c.items[req] = res
	}
}

func TestNewLLMEngine_EndToEnd(t *testing.T) {
	provider := &jsonProvider{}
	engine, err := NewLLMEngine(provider, roamingRetriever(), config.DefaultWorkflowConfig(), "test-model", zaptest.NewLogger(t))
	require.NoError(t, err)

	res, err := engine.Ask(context.Background(), "How do I activate roaming?", 0)
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusSuccess, res.FinalStatus)
	assert.Equal(t, "Activate roaming in the app.\n\n**Sources:** roaming.md, billing.md", res.FinalAnswer)
	assert.Equal(t, 0, res.RetryCount)
	// 2 次评分 + 1 次生成 + 1 次校验
	assert.EqualValues(t, 4, provider.calls.Load())
}

func TestNewLLMEngine_ZeroTemperaturesReachProvider(t *testing.T) {
	cfg := config.DefaultWorkflowConfig()
	cfg.GenerateTemperature = 0
	cfg.RegenerateTemperature = 0

	provider := &jsonProvider{}
	engine, err := NewLLMEngine(provider, roamingRetriever(), cfg, "m", nil)
	require.NoError(t, err)

	_, err = engine.Ask(context.Background(), "How do I activate roaming?", 0)
	require.NoError(t, err)

	provider.mu.Lock()
	defer provider.mu.Unlock()
	require.NotEmpty(t, provider.temps)
	for _, temp := range provider.temps {
		assert.Zero(t, temp)
	}
}

func TestNewLLMEngine_InvalidConfig(t *testing.T) {
	cfg := config.DefaultWorkflowConfig()
	cfg.FailPolicy = "sometimes"

	_, err := NewLLMEngine(&jsonProvider{}, roamingRetriever(), cfg, "m", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultWorkflowConfig()
	opts := OptionsFromConfig(cfg)

	assert.Equal(t, workflow.DefaultOptions().MaxRetries, opts.MaxRetries)
	assert.Equal(t, workflow.FailOpen, opts.FailPolicy)
	assert.Equal(t, cfg.RunTimeout, opts.RunTimeout)
	assert.Equal(t, cfg.TopicHints, opts.TopicHints)
	assert.NoError(t, opts.Validate())
}

func TestService_AskUsesCache(t *testing.T) {
	provider := &jsonProvider{}
	engine, err := NewLLMEngine(provider, roamingRetriever(), config.DefaultWorkflowConfig(), "m", nil)
	require.NoError(t, err)

	cache := newMapCache()
	svc := NewService(engine, WithCache(cache), WithLogger(zaptest.NewLogger(t)))
	ctx := context.Background()

	first, err := svc.Ask(ctx, workflow.RunRequest{Question: "How do I activate roaming?"})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	calls := provider.calls.Load()

	second, err := svc.Ask(ctx, workflow.RunRequest{Question: "  How do I activate roaming?  ", MaxRetries: 3})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, calls, provider.calls.Load(), "a cache hit must not call the model")
	assert.Equal(t, 1, cache.puts)
}

func TestService_AskRejectsInvalidRequest(t *testing.T) {
	engine, err := NewLLMEngine(&jsonProvider{}, roamingRetriever(), config.DefaultWorkflowConfig(), "m", nil)
	require.NoError(t, err)
	svc := NewService(engine, WithCache(newMapCache()))

	_, err = svc.Ask(context.Background(), workflow.RunRequest{Question: "   "})
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))

	_, err = svc.Ask(context.Background(), workflow.RunRequest{Question: "q", TopK: -1})
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))
	assert.Same(t, engine, svc.Engine())
}
