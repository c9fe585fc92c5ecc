package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/llm"
	"github.com/BaSui01/supportflow/llm/structured"
	"github.com/BaSui01/supportflow/rag"
)

// Verdict 溯源校验结果
type Verdict struct {
	Grounded  bool   `json:"grounded"`
	Rationale string `json:"rationale,omitempty"`
	// PolicyApplied 校验出错时记录实际采用的 FailPolicy，正常校验为空
	PolicyApplied FailPolicy `json:"policy_applied,omitempty"`
}

// Validator 溯源校验接口，实现必须并发安全。
// 返回 error 时由 Engine 按 FailPolicy 处理。
type Validator interface {
	Validate(ctx context.Context, question, draft string, passages []rag.Passage) (Verdict, error)
}

// ValidatorFunc 函数适配器
type ValidatorFunc func(ctx context.Context, question, draft string, passages []rag.Passage) (Verdict, error)

// Validate 实现 Validator
func (f ValidatorFunc) Validate(ctx context.Context, question, draft string, passages []rag.Passage) (Verdict, error) {
	return f(ctx, question, draft, passages)
}

// LLMValidator 基于 LLM 结构化输出的校验器
type LLMValidator struct {
	chat   chatClient
	logger *zap.Logger
}

// NewLLMValidator 创建校验器
func NewLLMValidator(provider llm.Provider, model string, logger *zap.Logger) *LLMValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMValidator{
		chat:   chatClient{provider: provider, model: model, maxTokens: 512},
		logger: logger.With(zap.String("component", "validator")),
	}
}

type verdictOutput struct {
	Grounded  *flexBool `json:"grounded"`
	Reasoning string    `json:"reasoning"`
}

// Validate 实现 Validator
func (v *LLMValidator) Validate(ctx context.Context, question, draft string, passages []rag.Passage) (Verdict, error) {
	raw, err := v.chat.complete(ctx, validateSystemPrompt, validateUserPrompt(question, draft, passages), 0, llm.ResponseFormatJSON)
	if err != nil {
		return Verdict{}, fmt.Errorf("validate answer: %w", err)
	}

	var out verdictOutput
	if err := structured.Decode(raw, &out); err != nil {
		return Verdict{}, fmt.Errorf("validate answer: %w", err)
	}
	if out.Grounded == nil {
		return Verdict{}, fmt.Errorf("validate answer: response missing \"grounded\"")
	}

	v.logger.Debug("answer validated", zap.Bool("grounded", bool(*out.Grounded)))
	return Verdict{Grounded: bool(*out.Grounded), Rationale: out.Reasoning}, nil
}
