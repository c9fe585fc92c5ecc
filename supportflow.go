// Package supportflow 是自纠正客服问答的顶层入口。
//
// 用法:
//
//	engine, err := supportflow.NewLLMEngine(provider, retriever, cfg.Workflow, cfg.LLM.Model, logger)
//	svc := supportflow.NewService(engine, supportflow.WithCache(answerCache))
//	res, err := svc.Ask(ctx, workflow.RunRequest{Question: "How do I activate roaming?"})
//
// Service 在 workflow.Engine 之上叠加答案缓存：请求先经 Engine.Normalize
// 补齐默认参数，再以规范化后的参数查询缓存，未命中时执行完整工作流。
package supportflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/config"
	"github.com/BaSui01/supportflow/llm"
	"github.com/BaSui01/supportflow/rag"
	"github.com/BaSui01/supportflow/workflow"
)

// ResultCache 答案缓存，internal/cache.AnswerCache 实现了该接口
type ResultCache interface {
	Get(ctx context.Context, req workflow.RunRequest) (*workflow.Result, bool)
	Put(ctx context.Context, req workflow.RunRequest, res *workflow.Result)
}

// Service 问答服务
type Service struct {
	engine *workflow.Engine
	cache  ResultCache
	logger *zap.Logger
}

// ServiceOption 服务可选项
type ServiceOption func(*Service)

// WithCache 启用答案缓存
func WithCache(c ResultCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService 创建问答服务
func NewService(engine *workflow.Engine, opts ...ServiceOption) *Service {
	s := &Service{engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "service"))
	return s
}

// Engine 返回底层引擎
func (s *Service) Engine() *workflow.Engine { return s.engine }

// Ask 回答一个问题。缓存命中时不会执行工作流，也不会触发引擎观察者。
func (s *Service) Ask(ctx context.Context, req workflow.RunRequest) (*workflow.Result, error) {
	normalized, err := s.engine.Normalize(req)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if res, ok := s.cache.Get(ctx, normalized); ok {
			s.logger.Debug("answer served from cache", zap.String("run_id", res.RunID))
			return res, nil
		}
	}

	res, err := s.engine.Run(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Put(ctx, normalized, res)
	}
	return res, nil
}

// OptionsFromConfig 将工作流配置转换为引擎选项
func OptionsFromConfig(cfg config.WorkflowConfig) workflow.Options {
	return workflow.Options{
		MaxRetries:       cfg.MaxRetries,
		TopK:             cfg.TopK,
		MinRelevantDocs:  cfg.MinRelevantDocs,
		GradeConcurrency: cfg.GradeConcurrency,
		FailPolicy:       workflow.FailPolicy(cfg.FailPolicy),
		TopicHints:       cfg.TopicHints,
		RetrieveTimeout:  cfg.RetrieveTimeout,
		GradeTimeout:     cfg.GradeTimeout,
		GenerateTimeout:  cfg.GenerateTimeout,
		ValidateTimeout:  cfg.ValidateTimeout,
		RunTimeout:       cfg.RunTimeout,
	}
}

// NewLLMEngine 用同一个 LLM Provider 组装评分器、生成器与校验器。
// logger 同时传给各组件与引擎。
func NewLLMEngine(provider llm.Provider, retriever rag.Retriever, cfg config.WorkflowConfig, model string, logger *zap.Logger, opts ...workflow.EngineOption) (*workflow.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	grader := workflow.NewLLMGrader(provider, workflow.LLMGraderConfig{
		Model:        model,
		ContentLimit: cfg.GradeContentLimit,
	}, logger)
	generator := workflow.NewLLMGenerator(provider, workflow.LLMGeneratorConfig{
		Model:                 model,
		GenerateTemperature:   float32(cfg.GenerateTemperature),
		RegenerateTemperature: float32(cfg.RegenerateTemperature),
		FallbackConfidence:    cfg.FallbackConfidence,
	}, logger)
	validator := workflow.NewLLMValidator(provider, model, logger)

	opts = append([]workflow.EngineOption{workflow.WithLogger(logger)}, opts...)
	return workflow.NewEngine(retriever, grader, generator, validator, OptionsFromConfig(cfg), opts...)
}
