package api

import (
	"time"

	"github.com/BaSui01/supportflow/workflow"
)

// =============================================================================
// 问答类型
// =============================================================================

// AskRequest 问答请求，零值参数使用服务端默认值
// @Description 问答请求结构
type AskRequest struct {
	// 用户问题
	Question string `json:"question" example:"How do I activate roaming?" binding:"required"`
	// 最大重新生成次数
	MaxRetries int `json:"max_retries,omitempty" example:"3"`
	// 检索候选段落数
	TopK int `json:"top_k,omitempty" example:"10"`
	// 生成所需的最少相关段落数
	MinRelevantDocs int `json:"min_relevant_docs,omitempty" example:"1"`
	// 是否在响应中包含逐节点审计轨迹
	IncludeTrace bool `json:"include_trace,omitempty" example:"false"`
}

// ToRunRequest 转换为工作流请求
func (r AskRequest) ToRunRequest() workflow.RunRequest {
	return workflow.RunRequest{
		Question:        r.Question,
		MaxRetries:      r.MaxRetries,
		TopK:            r.TopK,
		MinRelevantDocs: r.MinRelevantDocs,
	}
}

// AskResponse 问答响应
// @Description 问答响应结构
type AskResponse struct {
	RunID      string          `json:"run_id" example:"3f1c0d2e-7a4b-4c55-9a55-0c7c2b1f9e11"`
	Question   string          `json:"question"`
	Answer     string          `json:"answer"`
	Status     workflow.Status `json:"status" example:"success"`
	Sources    []string        `json:"sources"`
	RetryCount int             `json:"retry_count" example:"0"`
	MaxRetries int             `json:"max_retries" example:"3"`
	Confidence *float64        `json:"confidence,omitempty" example:"0.8"`
	Cached     bool            `json:"cached"`
	DurationMS int64           `json:"duration_ms" example:"2350"`
	Trace      []StepView      `json:"trace,omitempty"`
}

// StepView 审计轨迹中的一步
type StepView struct {
	Node       workflow.NodeID `json:"node" example:"grade_documents"`
	Outcome    string          `json:"outcome" example:"graded"`
	Details    map[string]any  `json:"details,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMS int64           `json:"duration_ms"`
}

// NewAskResponse 由运行结果构造响应
func NewAskResponse(res *workflow.Result, includeTrace bool) AskResponse {
	resp := AskResponse{
		RunID:      res.RunID,
		Question:   res.Question,
		Answer:     res.FinalAnswer,
		Status:     res.FinalStatus,
		Sources:    res.Sources,
		RetryCount: res.RetryCount,
		MaxRetries: res.MaxRetries,
		Confidence: res.Confidence,
		Cached:     res.Cached,
		DurationMS: res.Duration.Milliseconds(),
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	if includeTrace {
		resp.Trace = StepViews(res.AuditTrail)
	}
	return resp
}

// StepViews 转换审计轨迹
func StepViews(trail []workflow.StepRecord) []StepView {
	out := make([]StepView, 0, len(trail))
	for _, s := range trail {
		out = append(out, StepView{
			Node:       s.Node,
			Outcome:    s.Outcome,
			Details:    s.Details,
			StartedAt:  s.StartedAt,
			DurationMS: s.Duration.Milliseconds(),
		})
	}
	return out
}

// =============================================================================
// 运行记录类型
// =============================================================================

// RunDetail 单次运行回放
type RunDetail struct {
	AskResponse
	StartedAt time.Time `json:"started_at"`
}

// NewRunDetail 由持久化的运行结果构造回放
func NewRunDetail(res *workflow.Result) RunDetail {
	return RunDetail{
		AskResponse: NewAskResponse(res, true),
		StartedAt:   res.StartedAt,
	}
}

// RunSummary 运行摘要
type RunSummary struct {
	RunID      string          `json:"run_id"`
	Question   string          `json:"question"`
	Status     workflow.Status `json:"status"`
	RetryCount int             `json:"retry_count"`
	Confidence *float64        `json:"confidence,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMS int64           `json:"duration_ms"`
}

// RunList 运行列表
type RunList struct {
	Runs  []RunSummary `json:"runs"`
	Count int          `json:"count"`
}
