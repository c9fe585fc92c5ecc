package workflow

import (
	"fmt"
	"strings"
)

const (
	// SourcesLabel 来源脚注前缀
	SourcesLabel = "\n\n**Sources:** "
	// UnverifiedWarning 校验失败时追加的免责声明
	UnverifiedWarning = "\n\n⚠️ *Note: This answer may contain information not fully verified against the source documents.*"
)

// DefaultTopicHints 数据不足时建议的话题
var DefaultTopicHints = []string{"billing", "plans", "roaming", "activation", "Fair Usage Policy"}

// InsufficientDataMessage 数据不足时的固定致歉文本，包含原始问题
func InsufficientDataMessage(question string, hints []string) string {
	if len(hints) == 0 {
		hints = DefaultTopicHints
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I apologize, but I don't have sufficient information in my knowledge base to answer your question about: \"%s\"\n\n", question)
	b.WriteString("The documents I have don't contain relevant information for this query. Please try:\n")
	b.WriteString("1. Rephrasing your question\n")
	fmt.Fprintf(&b, "2. Asking about %s\n\n", joinHints(hints))
	b.WriteString("If you need immediate assistance, please contact customer support directly.")
	return b.String()
}

// SuccessAnswer 草稿加来源脚注，无来源时省略脚注
func SuccessAnswer(draft string, sources []string) string {
	if len(sources) == 0 {
		return draft
	}
	return draft + SourcesLabel + strings.Join(sources, ", ")
}

// ValidationFailedAnswer 成功格式再追加免责声明
func ValidationFailedAnswer(draft string, sources []string) string {
	return SuccessAnswer(draft, sources) + UnverifiedWarning
}

func joinHints(hints []string) string {
	switch len(hints) {
	case 0:
		return ""
	case 1:
		return hints[0]
	default:
		return strings.Join(hints[:len(hints)-1], ", ") + ", or " + hints[len(hints)-1]
	}
}
