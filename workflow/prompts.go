package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/supportflow/rag"
)

const gradeSystemPrompt = `You are a grader assessing the relevance of a retrieved document to a customer support question.
A document is relevant if it contains keywords, concepts or information related to the question. It does not need to fully answer it.
Respond with a JSON object: {"relevant": true|false, "reasoning": "<one sentence>"}.`

const generateSystemPrompt = `You are a helpful telecom customer support assistant. Answer the user's question based ONLY on the provided context documents.
1. Use ONLY information from the context documents.
2. Be concise but comprehensive.
3. If the context does not contain enough information, say so.
4. Do not make up or infer information not present in the documents.`

const regenerateSystemPrompt = `IMPORTANT: Your previous answer contained information not supported by the documents.
Generate a NEW answer using ONLY the information explicitly stated in the documents.
1. Use ONLY facts explicitly stated in the documents.
2. Do NOT add any information not directly from the documents.
3. If something is unclear, say "According to the documents..." rather than making assumptions.
4. Keep the answer focused and factual.`

const structuredSuffix = `Respond with a JSON object: {"answer": "<answer>", "confidence": <number between 0 and 1>, "reasoning": "<why the answer follows from the documents>"}.`

const validateSystemPrompt = `You are a grader assessing whether an answer is grounded in a set of documents.
Every factual claim in the answer must be supported by the documents. Minor paraphrasing is acceptable as long as the meaning is preserved.
Respond with a JSON object: {"grounded": true|false, "reasoning": "<one sentence>"}.`

// FormatContext 将片段格式化为带编号与来源的上下文
func FormatContext(passages []rag.Passage) string {
	var b strings.Builder
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		source := p.Source
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(&b, "[Document %d] (Source: %s)\n%s", i+1, source, p.Content)
	}
	return b.String()
}

// truncateRunes 按字符截断，不切断多字节字符
func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

func gradeUserPrompt(question, content string) string {
	return fmt.Sprintf("Retrieved Document:\n%s\n\nUser Question: %s", content, question)
}

func generateUserPrompt(req GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Context Documents:\n%s\n\nUser Question: %s", FormatContext(req.Passages), req.Question)
	if req.Strict {
		fmt.Fprintf(&b, "\n\nThis is attempt %d of %d.", req.Attempt, req.MaxAttempts)
	}
	return b.String()
}

func validateUserPrompt(question, draft string, passages []rag.Passage) string {
	return fmt.Sprintf("Documents:\n%s\n\nQuestion: %s\n\nAnswer to Validate:\n%s", FormatContext(passages), question, draft)
}
