package embedding

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/BaSui01/supportflow/internal/tlsutil"
	"github.com/BaSui01/supportflow/llm"
	"github.com/BaSui01/supportflow/llm/providers"
)

// OpenAIConfig OpenAI 兼容嵌入服务配置.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	MaxBatch   int
	Timeout    time.Duration
}

// OpenAIProvider 调用 /v1/embeddings 的嵌入提供者.
type OpenAIProvider struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAIProvider 创建 OpenAI 兼容嵌入提供者.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIProvider{cfg: cfg, client: tlsutil.SecureHTTPClient(cfg.Timeout)}
}

func (p *OpenAIProvider) Name() string    { return "openai-embedding" }
func (p *OpenAIProvider) Dimensions() int { return p.cfg.Dimensions }

// EmbedQuery 嵌入单个查询.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	vectors, err := p.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments 按 MaxBatch 分批嵌入文档.
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	out := make([][]float64, 0, len(documents))
	for start := 0; start < len(documents); start += p.cfg.MaxBatch {
		end := min(start+p.cfg.MaxBatch, len(documents))
		vectors, err := p.embed(ctx, documents[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (p *OpenAIProvider) embed(ctx context.Context, input []string) ([][]float64, error) {
	body, err := json.Marshal(EmbeddingRequest{
		Input:          input,
		Model:          p.cfg.Model,
		Dimensions:     p.cfg.Dimensions,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	providers.BearerTokenHeaders(req, p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, providers.MapTransportError(err, p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, providers.MapHTTPError(resp.StatusCode, providers.ReadErrorMessage(resp.Body), p.Name())
	}

	var er EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(er.Data) != len(input) {
		return nil, &llm.Error{
			Code:     llm.ErrEmptyResponse,
			Message:  fmt.Sprintf("expected %d embeddings, got %d", len(input), len(er.Data)),
			Provider: p.Name(),
		}
	}

	sort.Slice(er.Data, func(i, j int) bool { return er.Data[i].Index < er.Data[j].Index })
	vectors := make([][]float64, len(er.Data))
	for i, d := range er.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
