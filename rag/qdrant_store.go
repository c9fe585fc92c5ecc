package rag

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/internal/tlsutil"
)

// QdrantConfig Qdrant 向量存储配置。
//
// 点 ID 由 Document.ID 派生出稳定的 UUID，原始 ID、内容、来源与元数据存放在 payload 中。
type QdrantConfig struct {
	Host       string        `json:"host"`
	Port       int           `json:"port"`
	BaseURL    string        `json:"base_url,omitempty"`
	APIKey     string        `json:"api_key,omitempty"`
	Collection string        `json:"collection"`
	Timeout    time.Duration `json:"timeout,omitempty"`
}

// QdrantStore 基于 Qdrant REST API 的 VectorStore
type QdrantStore struct {
	cfg     QdrantConfig
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

const (
	qdrantFieldID       = "doc_id"
	qdrantFieldContent  = "content"
	qdrantFieldSource   = "source"
	qdrantFieldMetadata = "metadata"
)

// NewQdrantStore 创建 Qdrant 存储
func NewQdrantStore(cfg QdrantConfig, logger *zap.Logger) *QdrantStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6333
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}

	return &QdrantStore{
		cfg:     cfg,
		baseURL: baseURL,
		client:  tlsutil.SecureHTTPClient(cfg.Timeout),
		logger:  logger.With(zap.String("component", "qdrant_store")),
	}
}

var qdrantNamespace = uuid.MustParse("d9bde6d4-4f3a-4e6b-8f7a-5d8d2f3b4c1a")

func qdrantPointID(docID string) string {
	return uuid.NewSHA1(qdrantNamespace, []byte(docID)).String()
}

func (s *QdrantStore) collectionPath(suffix string) (string, error) {
	if strings.TrimSpace(s.cfg.Collection) == "" {
		return "", fmt.Errorf("qdrant collection is required")
	}
	return fmt.Sprintf("/collections/%s%s", url.PathEscape(s.cfg.Collection), suffix), nil
}

func (s *QdrantStore) doJSON(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(s.cfg.APIKey) != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return fmt.Errorf("qdrant request failed: method=%s path=%s status=%d body=%s", method, path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// AddDocuments 以 upsert 方式写入文档
func (s *QdrantStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	path, err := s.collectionPath("/points?wait=true")
	if err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float64      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document[%d] has empty id", i)
		}
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document[%d] has no embedding", i)
		}
		points = append(points, point{
			ID:     qdrantPointID(doc.ID),
			Vector: doc.Embedding,
			Payload: map[string]any{
				qdrantFieldID:       doc.ID,
				qdrantFieldContent:  doc.Content,
				qdrantFieldSource:   doc.SourceName(),
				qdrantFieldMetadata: doc.Metadata,
			},
		})
	}

	req := struct {
		Points []point `json:"points"`
	}{Points: points}

	if err := s.doJSON(ctx, http.MethodPut, path, req, nil); err != nil {
		return err
	}
	s.logger.Debug("qdrant upsert completed", zap.Int("count", len(docs)))
	return nil
}

// Search 搜索相似文档
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float64, topK int) ([]VectorSearchResult, error) {
	path, err := s.collectionPath("/points/search")
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []VectorSearchResult{}, nil
	}
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("query embedding is required")
	}

	req := struct {
		Vector      []float64 `json:"vector"`
		Limit       int       `json:"limit"`
		WithPayload bool      `json:"with_payload"`
	}{
		Vector:      queryEmbedding,
		Limit:       topK,
		WithPayload: true,
	}

	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
		Status string `json:"status"`
	}
	if err := s.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	out := make([]VectorSearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		doc := Document{}
		if v, ok := r.Payload[qdrantFieldID].(string); ok {
			doc.ID = v
		}
		if v, ok := r.Payload[qdrantFieldContent].(string); ok {
			doc.Content = v
		}
		if v, ok := r.Payload[qdrantFieldSource].(string); ok {
			doc.Source = v
		}
		if v, ok := r.Payload[qdrantFieldMetadata].(map[string]any); ok {
			doc.Metadata = v
		}
		if doc.ID == "" {
			doc.ID = fmt.Sprint(r.ID)
		}
		out = append(out, VectorSearchResult{
			Document: doc,
			Score:    r.Score,
			Distance: 1.0 - r.Score,
		})
	}
	return out, nil
}

// Count 返回集合中的点数
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	path, err := s.collectionPath("/points/count")
	if err != nil {
		return 0, err
	}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, path, map[string]bool{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}
