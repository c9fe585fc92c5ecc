package workflow

import "context"

// Observer 接收运行过程中的事件，实现必须并发安全。
// 评分并行时 FailPolicyApplied 可能在多个 goroutine 中同时调用。
type Observer interface {
	// NodeCompleted 节点更新合并并记录审计条目后调用
	NodeCompleted(ctx context.Context, runID string, rec StepRecord)
	// FailPolicyApplied Grader / Validator 出错且按 policy 处理时调用
	FailPolicyApplied(component string, policy FailPolicy)
	// RunCompleted 运行到达终止节点后调用
	RunCompleted(ctx context.Context, res *Result)
	// RunFailed 运行因致命错误中止时调用
	RunFailed(ctx context.Context, runID string, err error)
}

// BaseObserver 空实现，供只关心部分事件的观察者嵌入
type BaseObserver struct{}

func (BaseObserver) NodeCompleted(context.Context, string, StepRecord) {}
func (BaseObserver) FailPolicyApplied(string, FailPolicy)              {}
func (BaseObserver) RunCompleted(context.Context, *Result)             {}
func (BaseObserver) RunFailed(context.Context, string, error)          {}
