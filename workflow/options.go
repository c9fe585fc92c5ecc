package workflow

import (
	"fmt"
	"time"

	"github.com/BaSui01/supportflow/types"
)

// Options 引擎级配置，RunRequest 中的零值字段回落到这里
type Options struct {
	MaxRetries       int
	TopK             int
	MinRelevantDocs  int
	GradeConcurrency int
	FailPolicy       FailPolicy
	TopicHints       []string

	RetrieveTimeout time.Duration
	GradeTimeout    time.Duration
	GenerateTimeout time.Duration
	ValidateTimeout time.Duration
	// RunTimeout 单次运行总超时，0 表示不限制
	RunTimeout time.Duration
}

// DefaultOptions 返回默认配置
func DefaultOptions() Options {
	return Options{
		MaxRetries:       3,
		TopK:             10,
		MinRelevantDocs:  1,
		GradeConcurrency: 1,
		FailPolicy:       FailOpen,
		TopicHints:       append([]string(nil), DefaultTopicHints...),
		RetrieveTimeout:  10 * time.Second,
		GradeTimeout:     20 * time.Second,
		GenerateTimeout:  60 * time.Second,
		ValidateTimeout:  30 * time.Second,
		RunTimeout:       150 * time.Second,
	}
}

// Validate 校验配置
func (o Options) Validate() error {
	switch {
	case o.MaxRetries < 1:
		return invalidConfig("max_retries must be >= 1, got %d", o.MaxRetries)
	case o.TopK < 1:
		return invalidConfig("top_k must be >= 1, got %d", o.TopK)
	case o.MinRelevantDocs < 1:
		return invalidConfig("min_relevant_docs must be >= 1, got %d", o.MinRelevantDocs)
	case o.GradeConcurrency < 0:
		return invalidConfig("grade_concurrency must be >= 0, got %d", o.GradeConcurrency)
	case !o.FailPolicy.Valid():
		return invalidConfig("fail_policy must be open or closed, got %q", o.FailPolicy)
	case o.RetrieveTimeout < 0, o.GradeTimeout < 0, o.GenerateTimeout < 0, o.ValidateTimeout < 0, o.RunTimeout < 0:
		return invalidConfig("timeouts must not be negative")
	}
	return nil
}

func invalidConfig(format string, args ...any) *types.Error {
	return types.NewError(types.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
