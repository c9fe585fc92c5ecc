package llm

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/supportflow/llm/circuitbreaker"
	"github.com/BaSui01/supportflow/llm/retry"
	"go.uber.org/zap"
)

// Recorder 接收每次 LLM 调用的观测数据（由 internal/metrics 实现）
type Recorder interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int)
}

// ResilientProvider 具有弹性能力的 Provider 包装器
// 提供重试与熔断，遵循装饰器模式：增强原有 Provider 而不修改其代码
type ResilientProvider struct {
	provider Provider
	retryer  retry.Retryer
	breaker  circuitbreaker.CircuitBreaker
	recorder Recorder
	logger   *zap.Logger
}

// ResilientProviderConfig 弹性 Provider 配置，字段为 nil 时关闭对应能力
type ResilientProviderConfig struct {
	RetryPolicy          *retry.RetryPolicy
	CircuitBreakerConfig *circuitbreaker.Config
}

// DefaultResilientProviderConfig 返回默认配置
func DefaultResilientProviderConfig() *ResilientProviderConfig {
	return &ResilientProviderConfig{
		RetryPolicy:          retry.DefaultRetryPolicy(),
		CircuitBreakerConfig: circuitbreaker.DefaultConfig(),
	}
}

// NewResilientProvider 创建具有弹性能力的 Provider
func NewResilientProvider(provider Provider, config *ResilientProviderConfig, recorder Recorder, logger *zap.Logger) *ResilientProvider {
	if config == nil {
		config = DefaultResilientProviderConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rp := &ResilientProvider{
		provider: provider,
		recorder: recorder,
		logger:   logger.With(zap.String("provider", provider.Name())),
	}

	if config.RetryPolicy != nil {
		policy := *config.RetryPolicy
		if policy.ShouldRetry == nil {
			policy.ShouldRetry = IsRetryable
		}
		rp.retryer = retry.NewBackoffRetryer(&policy, rp.logger)
	}

	if config.CircuitBreakerConfig != nil {
		cbCfg := *config.CircuitBreakerConfig
		if cbCfg.IsFailure == nil {
			cbCfg.IsFailure = countsAsFailure
		}
		rp.breaker = circuitbreaker.NewCircuitBreaker(&cbCfg, rp.logger)
	}

	return rp
}

// countsAsFailure 客户端错误（鉴权、参数、配额）不计入熔断失败
func countsAsFailure(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return true
}

// Completion 实现 Provider.Completion，集成重试与熔断
func (rp *ResilientProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	call := func() (*ChatResponse, error) {
		if rp.breaker == nil {
			return rp.provider.Completion(ctx, req)
		}
		resp, err := circuitbreaker.CallWithResult(ctx, rp.breaker, func(ctx context.Context) (*ChatResponse, error) {
			return rp.provider.Completion(ctx, req)
		})
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyCallsInHalfOpen) {
			return nil, &Error{
				Code:     ErrProviderUnavailable,
				Message:  err.Error(),
				Provider: rp.provider.Name(),
			}
		}
		return resp, err
	}

	var resp *ChatResponse
	var err error
	if rp.retryer != nil {
		resp, err = retry.DoWithResult(ctx, rp.retryer, call)
	} else {
		resp, err = call()
	}

	rp.record(req, resp, err, time.Since(start))
	return resp, err
}

func (rp *ResilientProvider) record(req *ChatRequest, resp *ChatResponse, err error, d time.Duration) {
	if rp.recorder == nil {
		return
	}
	status := "success"
	var usage ChatUsage
	if err != nil {
		status = "error"
	} else if resp != nil {
		usage = resp.Usage
	}
	rp.recorder.RecordLLMRequest(rp.provider.Name(), req.Model, status, d, usage.PromptTokens, usage.CompletionTokens)
}

// HealthCheck 委托给底层 Provider，熔断打开时直接报告不健康
func (rp *ResilientProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	if rp.breaker != nil && rp.breaker.State() == circuitbreaker.StateOpen {
		return &HealthStatus{Healthy: false}, circuitbreaker.ErrCircuitOpen
	}
	return rp.provider.HealthCheck(ctx)
}

// Name 实现 Provider.Name
func (rp *ResilientProvider) Name() string {
	return rp.provider.Name()
}
