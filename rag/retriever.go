package rag

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/llm/embedding"
	"github.com/BaSui01/supportflow/types"
)

// VectorRetriever 组合 embedding 提供者与向量存储实现 Retriever
type VectorRetriever struct {
	embedder embedding.Provider
	store    VectorStore
	logger   *zap.Logger
}

// NewVectorRetriever 创建向量检索器
func NewVectorRetriever(embedder embedding.Provider, store VectorStore, logger *zap.Logger) *VectorRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorRetriever{
		embedder: embedder,
		store:    store,
		logger:   logger.With(zap.String("component", "vector_retriever")),
	}
}

// Retrieve 实现 Retriever
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "query is empty")
	}
	if k <= 0 {
		return []Passage{}, nil
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, wrapRetrievalError("embed query", err)
	}

	results, err := r.store.Search(ctx, vec, k)
	if err != nil {
		return nil, wrapRetrievalError("vector search", err)
	}

	passages := make([]Passage, 0, len(results))
	for _, res := range results {
		passages = append(passages, res.ToPassage())
	}

	r.logger.Debug("retrieval completed",
		zap.String("embedder", r.embedder.Name()),
		zap.Int("requested", k),
		zap.Int("returned", len(passages)))

	return passages, nil
}

func wrapRetrievalError(stage string, err error) error {
	if ctxErr := types.FromContext(err); ctxErr != nil {
		return ctxErr
	}
	return types.NewError(types.ErrRetrievalUnavailable, stage+" failed").WithCause(err)
}
