package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/llm"
	"github.com/BaSui01/supportflow/llm/structured"
	"github.com/BaSui01/supportflow/rag"
)

// Grade 单个片段的相关性评分
type Grade struct {
	Relevant  bool   `json:"relevant"`
	Rationale string `json:"rationale,omitempty"`
	// PolicyApplied 评分出错时记录实际采用的 FailPolicy，正常评分为空
	PolicyApplied FailPolicy `json:"policy_applied,omitempty"`
}

// Grader 相关性评分接口，实现必须并发安全。
// 返回 error 时由 Engine 按 FailPolicy 处理。
type Grader interface {
	Grade(ctx context.Context, question string, passage rag.Passage) (Grade, error)
}

// GraderFunc 函数适配器
type GraderFunc func(ctx context.Context, question string, passage rag.Passage) (Grade, error)

// Grade 实现 Grader
func (f GraderFunc) Grade(ctx context.Context, question string, passage rag.Passage) (Grade, error) {
	return f(ctx, question, passage)
}

// LLMGraderConfig LLM 评分器配置
type LLMGraderConfig struct {
	Model string
	// ContentLimit 送入模型的片段内容字符上限
	ContentLimit int
}

// LLMGrader 基于 LLM 结构化输出的评分器
type LLMGrader struct {
	chat         chatClient
	contentLimit int
	logger       *zap.Logger
}

// NewLLMGrader 创建评分器
func NewLLMGrader(provider llm.Provider, cfg LLMGraderConfig, logger *zap.Logger) *LLMGrader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ContentLimit <= 0 {
		cfg.ContentLimit = 1000
	}
	return &LLMGrader{
		chat:         chatClient{provider: provider, model: cfg.Model, maxTokens: 256},
		contentLimit: cfg.ContentLimit,
		logger:       logger.With(zap.String("component", "grader")),
	}
}

type gradeOutput struct {
	Relevant  *flexBool `json:"relevant"`
	Reasoning string    `json:"reasoning"`
}

// Grade 实现 Grader
func (g *LLMGrader) Grade(ctx context.Context, question string, passage rag.Passage) (Grade, error) {
	content := truncateRunes(passage.Content, g.contentLimit)
	raw, err := g.chat.complete(ctx, gradeSystemPrompt, gradeUserPrompt(question, content), 0, llm.ResponseFormatJSON)
	if err != nil {
		return Grade{}, fmt.Errorf("grade passage: %w", err)
	}

	var out gradeOutput
	if err := structured.Decode(raw, &out); err != nil {
		return Grade{}, fmt.Errorf("grade passage: %w", err)
	}
	if out.Relevant == nil {
		return Grade{}, fmt.Errorf("grade passage: response missing \"relevant\"")
	}

	g.logger.Debug("passage graded",
		zap.String("source", passage.Source),
		zap.Bool("relevant", bool(*out.Relevant)))

	return Grade{Relevant: bool(*out.Relevant), Rationale: out.Reasoning}, nil
}
