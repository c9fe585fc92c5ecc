package workflow

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/llm"
	"github.com/BaSui01/supportflow/llm/structured"
	"github.com/BaSui01/supportflow/rag"
)

const (
	// DefaultFallbackConfidence 纯文本回退路径的置信度
	DefaultFallbackConfidence = 0.7
	// DefaultStructuredConfidence 结构化输出缺少 confidence 时的默认值
	DefaultStructuredConfidence = 0.8
	// DefaultGenerateTemperature 首次生成温度
	DefaultGenerateTemperature = 0.3
	// DefaultRegenerateTemperature 严格重生成温度
	DefaultRegenerateTemperature = 0.1
)

var errEmptyAnswer = errors.New("structured output has an empty answer")

// UnableToComposeAnswer 生成完全失败时的降级草稿
const UnableToComposeAnswer = "I'm sorry, I was unable to compose an answer from the available documents right now. Please try again later or contact customer support directly."

// GenerateRequest 生成请求
type GenerateRequest struct {
	Question string
	Passages []rag.Passage
	// Strict 严格重生成模式
	Strict bool
	// Attempt / MaxAttempts 仅在 Strict 模式下使用，对应第 k 次 / 共 n 次
	Attempt     int
	MaxAttempts int
}

// Draft 生成的答案草稿
type Draft struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
	// Fallback 使用了纯文本回退路径
	Fallback bool `json:"fallback,omitempty"`
	// Degraded 两条路径都失败，Answer 为固定降级文本
	Degraded bool `json:"degraded,omitempty"`
}

// Generator 答案生成接口，实现必须并发安全。
// 仅在上下文取消或超时时返回 error，其余失败应降级为 Draft。
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (Draft, error)
}

// GeneratorFunc 函数适配器
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (Draft, error)

// Generate 实现 Generator
func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (Draft, error) {
	return f(ctx, req)
}

// LLMGeneratorConfig LLM 生成器配置
type LLMGeneratorConfig struct {
	Model                 string
	MaxTokens             int
	GenerateTemperature   float32
	RegenerateTemperature float32
	FallbackConfidence    float64
}

// DefaultLLMGeneratorConfig 返回默认温度与回退置信度
func DefaultLLMGeneratorConfig() LLMGeneratorConfig {
	return LLMGeneratorConfig{
		MaxTokens:             1024,
		GenerateTemperature:   DefaultGenerateTemperature,
		RegenerateTemperature: DefaultRegenerateTemperature,
		FallbackConfidence:    DefaultFallbackConfidence,
	}
}

// LLMGenerator 先请求结构化 JSON，失败后回退一次纯文本调用
type LLMGenerator struct {
	chat   chatClient
	cfg    LLMGeneratorConfig
	logger *zap.Logger
}

// NewLLMGenerator 创建生成器。温度与回退置信度按原值使用，0 是合法取值；
// 需要默认值时从 DefaultLLMGeneratorConfig 开始。
func NewLLMGenerator(provider llm.Provider, cfg LLMGeneratorConfig, logger *zap.Logger) *LLMGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &LLMGenerator{
		chat:   chatClient{provider: provider, model: cfg.Model, maxTokens: cfg.MaxTokens},
		cfg:    cfg,
		logger: logger.With(zap.String("component", "generator")),
	}
}

type draftOutput struct {
	Answer     string   `json:"answer"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Generate 实现 Generator
func (g *LLMGenerator) Generate(ctx context.Context, req GenerateRequest) (Draft, error) {
	system, temperature := generateSystemPrompt, g.cfg.GenerateTemperature
	if req.Strict {
		system, temperature = regenerateSystemPrompt, g.cfg.RegenerateTemperature
	}
	user := generateUserPrompt(req)

	draft, err := g.structured(ctx, system, user, temperature)
	if err == nil {
		return draft, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Draft{}, ctxErr
	}
	g.logger.Warn("structured generation failed, falling back to plain text",
		zap.Bool("strict", req.Strict),
		zap.Error(err))

	text, err := g.chat.complete(ctx, system, user, temperature, llm.ResponseFormatText)
	if err == nil && strings.TrimSpace(text) != "" {
		return Draft{
			Answer:     strings.TrimSpace(text),
			Confidence: g.cfg.FallbackConfidence,
			Fallback:   true,
		}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Draft{}, ctxErr
	}
	g.logger.Error("plain text generation failed, returning degraded draft", zap.Error(err))

	return DegradedDraft(), nil
}

func (g *LLMGenerator) structured(ctx context.Context, system, user string, temperature float32) (Draft, error) {
	raw, err := g.chat.complete(ctx, system+"\n\n"+structuredSuffix, user, temperature, llm.ResponseFormatJSON)
	if err != nil {
		return Draft{}, err
	}
	var out draftOutput
	if err := structured.Decode(raw, &out); err != nil {
		return Draft{}, err
	}
	if strings.TrimSpace(out.Answer) == "" {
		return Draft{}, errEmptyAnswer
	}
	confidence := DefaultStructuredConfidence
	if out.Confidence != nil {
		confidence = structured.Clamp(*out.Confidence, 0, 1)
	}
	return Draft{
		Answer:     strings.TrimSpace(out.Answer),
		Confidence: confidence,
		Reasoning:  out.Reasoning,
	}, nil
}

// DegradedDraft 返回固定降级草稿
func DegradedDraft() Draft {
	return Draft{Answer: UnableToComposeAnswer, Confidence: 0, Fallback: true, Degraded: true}
}
