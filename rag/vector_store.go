package rag

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/llm/embedding"
)

// VectorStore 向量数据库接口
type VectorStore interface {
	// 添加文档，同 ID 文档覆盖
	AddDocuments(ctx context.Context, docs []Document) error

	// 搜索相似文档，按分数降序
	Search(ctx context.Context, queryEmbedding []float64, topK int) ([]VectorSearchResult, error)

	// 获取文档数量
	Count(ctx context.Context) (int, error)
}

// VectorSearchResult 向量搜索结果
type VectorSearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
	Distance float64  `json:"distance"`
}

// ====== 内存向量存储（用于测试和小规模部署）======

// InMemoryVectorStore 内存向量存储
type InMemoryVectorStore struct {
	documents []Document
	index     map[string]int
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewInMemoryVectorStore 创建内存向量存储
func NewInMemoryVectorStore(logger *zap.Logger) *InMemoryVectorStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryVectorStore{
		documents: make([]Document, 0),
		index:     make(map[string]int),
		logger:    logger.With(zap.String("component", "memory_store")),
	}
}

// AddDocuments 添加文档
func (s *InMemoryVectorStore) AddDocuments(ctx context.Context, docs []Document) error {
	for i, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document[%d] has empty id", i)
		}
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document %s has no embedding", doc.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		if pos, ok := s.index[doc.ID]; ok {
			s.documents[pos] = doc
			continue
		}
		s.index[doc.ID] = len(s.documents)
		s.documents = append(s.documents, doc)
	}

	s.logger.Debug("documents added to vector store",
		zap.Int("count", len(docs)),
		zap.Int("total", len(s.documents)))

	return nil
}

// Search 搜索相似文档
func (s *InMemoryVectorStore) Search(ctx context.Context, queryEmbedding []float64, topK int) ([]VectorSearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 || len(s.documents) == 0 {
		return []VectorSearchResult{}, nil
	}

	results := make([]VectorSearchResult, 0, len(s.documents))
	for _, doc := range s.documents {
		similarity := cosineSimilarity(queryEmbedding, doc.Embedding)
		results = append(results, VectorSearchResult{
			Document: doc,
			Score:    similarity,
			Distance: 1.0 - similarity,
		})
	}

	sortByScore(results)

	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// Count 返回文档数量
func (s *InMemoryVectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), nil
}

// LoadSeedFile 从 JSONL 文件加载文档，每行一个 Document。
// 缺少 embedding 的文档通过 embedder 补齐；embedder 为 nil 时报错。
func (s *InMemoryVectorStore) LoadSeedFile(ctx context.Context, path string, embedder embedding.Provider) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var (
		docs    []Document
		missing []int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		var doc Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return 0, fmt.Errorf("seed file line %d: %w", line, err)
		}
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("%s#%d", path, line)
		}
		if len(doc.Embedding) == 0 {
			missing = append(missing, len(docs))
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	if len(missing) > 0 {
		if embedder == nil {
			return 0, fmt.Errorf("seed file has %d documents without embedding and no embedder configured", len(missing))
		}
		texts := make([]string, len(missing))
		for i, pos := range missing {
			texts[i] = docs[pos].Content
		}
		vectors, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed seed documents: %w", err)
		}
		if len(vectors) != len(missing) {
			return 0, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(missing))
		}
		for i, pos := range missing {
			docs[pos].Embedding = vectors[i]
		}
	}

	if err := s.AddDocuments(ctx, docs); err != nil {
		return 0, err
	}
	s.logger.Info("seed documents loaded", zap.String("path", path), zap.Int("count", len(docs)))
	return len(docs), nil
}

// cosineSimilarity 计算余弦相似度，维度不一致或零向量返回 0
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sortByScore 按分数降序排序，分数相同时保持插入顺序
func sortByScore(results []VectorSearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
