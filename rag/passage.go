package rag

import (
	"context"
	"strings"
)

// Passage 检索得到的文档片段，检索完成后不再修改
type Passage struct {
	Content  string         `json:"content"`
	Source   string         `json:"source"`
	Score    *float64       `json:"score,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Retriever 检索端口
type Retriever interface {
	// Retrieve 返回与 query 最相关的至多 k 个片段，按相关度降序
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}

// RetrieverFunc 函数适配器
type RetrieverFunc func(ctx context.Context, query string, k int) ([]Passage, error)

// Retrieve 实现 Retriever
func (f RetrieverFunc) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	return f(ctx, query, k)
}

// Document 向量存储中的文档
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Source    string         `json:"source,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float64      `json:"embedding,omitempty"`
}

// SourceName 返回文档来源，未设置时回退到 metadata["source"] 再回退到 ID
func (d Document) SourceName() string {
	if s := strings.TrimSpace(d.Source); s != "" {
		return s
	}
	if v, ok := d.Metadata["source"].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return d.ID
}

// ToPassage 将搜索结果转换为 Passage
func (r VectorSearchResult) ToPassage() Passage {
	score := r.Score
	return Passage{
		Content:  r.Document.Content,
		Source:   r.Document.SourceName(),
		Score:    &score,
		Metadata: r.Document.Metadata,
	}
}

// Sources 按首次出现顺序返回去重后的来源列表，忽略空来源
func Sources(passages []Passage) []string {
	seen := make(map[string]struct{}, len(passages))
	out := make([]string, 0, len(passages))
	for _, p := range passages {
		s := strings.TrimSpace(p.Source)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
