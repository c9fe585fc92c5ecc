// Package ctxkeys 定义跨包共享的 context 键。
package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	runIDKey   contextKey = "run_id"
	nodeKey    contextKey = "workflow_node"
	subjectKey contextKey = "auth_subject"
)

// WithTraceID 设置 TraceID（HTTP 请求 ID）
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID 获取 TraceID
func TraceID(ctx context.Context) (string, bool) {
	return lookup(ctx, traceIDKey)
}

// WithRunID 设置工作流 RunID
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID 获取工作流 RunID
func RunID(ctx context.Context) (string, bool) {
	return lookup(ctx, runIDKey)
}

// WithNode 设置当前执行的工作流节点
func WithNode(ctx context.Context, node string) context.Context {
	return context.WithValue(ctx, nodeKey, node)
}

// Node 获取当前执行的工作流节点
func Node(ctx context.Context) (string, bool) {
	return lookup(ctx, nodeKey)
}

// WithSubject 设置认证主体（JWT sub 或 API Key 标识）
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// Subject 获取认证主体
func Subject(ctx context.Context) (string, bool) {
	return lookup(ctx, subjectKey)
}

func lookup(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
