package workflow

// NodeID 图节点标识
type NodeID string

const (
	NodeRetrieve        NodeID = "retrieve"
	NodeGrade           NodeID = "grade_documents"
	NodeGenerate        NodeID = "generate_answer"
	NodeValidate        NodeID = "validate_answer"
	NodeRegenerate      NodeID = "regenerate_answer"
	NodeEndInsufficient NodeID = "end_insufficient"
	NodeEndSuccess      NodeID = "end_success"
	NodeEndFailed       NodeID = "end_failed"
)

// IsTerminal 是否为终止节点
func (n NodeID) IsTerminal() bool {
	switch n {
	case NodeEndInsufficient, NodeEndSuccess, NodeEndFailed:
		return true
	default:
		return false
	}
}

// String 实现 fmt.Stringer
func (n NodeID) String() string { return string(n) }

// Status 运行最终状态
type Status string

const (
	StatusSuccess          Status = "success"
	StatusInsufficientData Status = "insufficient_data"
	StatusValidationFailed Status = "validation_failed"
)

// Valid 是否为三种合法终态之一
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusInsufficientData, StatusValidationFailed:
		return true
	default:
		return false
	}
}

// terminalStatus 返回终止节点对应的状态
func terminalStatus(n NodeID) Status {
	switch n {
	case NodeEndInsufficient:
		return StatusInsufficientData
	case NodeEndSuccess:
		return StatusSuccess
	case NodeEndFailed:
		return StatusValidationFailed
	default:
		return ""
	}
}

// FailPolicy Grader / Validator 出错时的处理策略
type FailPolicy string

const (
	// FailOpen 出错时视为相关 / 已溯源
	FailOpen FailPolicy = "open"
	// FailClosed 出错时视为不相关 / 未溯源
	FailClosed FailPolicy = "closed"
)

// Valid 校验策略值
func (p FailPolicy) Valid() bool {
	return p == FailOpen || p == FailClosed
}

// MaxVisits 返回单次运行节点访问次数上限（含终止节点）。
// Retrieve、Grade、Generate、Validate 各一次，每轮重试 Regenerate + Validate 两次，再加一个终止节点。
func MaxVisits(maxRetries int) int {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return 4 + 2*maxRetries + 1
}
