package workflow

import (
	"time"

	"github.com/BaSui01/supportflow/rag"
	"github.com/BaSui01/supportflow/types"
)

// ErrFinalized 终态已写入后再次写入
var ErrFinalized = types.NewError(types.ErrInvalidTransition, "final answer already written")

// errRetrievedTwice 检索结果重复写入
var errRetrievedTwice = types.NewError(types.ErrInvalidTransition, "retrieved passages already set")

// StepRecord 审计轨迹条目，仅用于诊断
type StepRecord struct {
	Node      NodeID         `json:"node"`
	Outcome   string         `json:"outcome"`
	Details   map[string]any `json:"details,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}

// State 单次运行的工作流状态，由 Engine 独占，不跨运行共享。
// 节点只读取 State，修改一律通过 Update 由 Engine 合并。
type State struct {
	Question          string
	RetrievedPassages []rag.Passage
	RelevantPassages  []rag.Passage
	Grades            []Grade
	DraftAnswer       string
	Confidence        *float64
	IsGrounded        bool
	RetryCount        int
	MaxRetries        int
	Sources           []string
	AuditTrail        []StepRecord
	FinalAnswer       string
	FinalStatus       Status

	// Version 每次合并更新后递增
	Version uint64

	retrieved bool
	finalized bool
}

// NewState 创建新运行状态
func NewState(question string, maxRetries int) *State {
	return &State{
		Question:   question,
		MaxRetries: maxRetries,
		AuditTrail: make([]StepRecord, 0, MaxVisits(maxRetries)),
	}
}

// Finalized 终态是否已写入
func (s *State) Finalized() bool { return s.finalized }

// Final 终态写入
type Final struct {
	Answer string
	Status Status
}

// Update 节点返回的部分更新，nil 字段表示不修改
type Update struct {
	Retrieved      []rag.Passage
	Relevant       []rag.Passage
	Grades         []Grade
	Draft          *string
	Confidence     *float64
	Grounded       *bool
	IncrementRetry bool
	Sources        []string
	Final          *Final

	// Outcome / Details 写入本次访问的 StepRecord，不进入状态
	Outcome string
	Details map[string]any
}

// Apply 合并更新。校验全部通过后才修改状态，失败时状态保持不变。
func (s *State) Apply(u Update) error {
	if u.Retrieved != nil && s.retrieved {
		return errRetrievedTwice
	}
	if u.Final != nil {
		if s.finalized {
			return ErrFinalized
		}
		if !u.Final.Status.Valid() {
			return types.NewError(types.ErrInvalidTransition, "invalid final status "+string(u.Final.Status))
		}
	}

	if u.Retrieved != nil {
		s.RetrievedPassages = u.Retrieved
		s.retrieved = true
	}
	if u.Relevant != nil {
		s.RelevantPassages = u.Relevant
	}
	if u.Grades != nil {
		s.Grades = u.Grades
	}
	if u.Draft != nil {
		s.DraftAnswer = *u.Draft
	}
	if u.Confidence != nil {
		c := *u.Confidence
		s.Confidence = &c
	}
	if u.Grounded != nil {
		s.IsGrounded = *u.Grounded
	}
	if u.IncrementRetry {
		s.RetryCount++
	}
	if u.Sources != nil {
		s.Sources = u.Sources
	}
	if u.Final != nil {
		s.FinalAnswer = u.Final.Answer
		s.FinalStatus = u.Final.Status
		s.finalized = true
	}
	s.Version++
	return nil
}

// record 追加审计条目
func (s *State) record(rec StepRecord) {
	s.AuditTrail = append(s.AuditTrail, rec)
}
