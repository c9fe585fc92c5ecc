package workflow

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/BaSui01/supportflow/internal/ctxkeys"
	"github.com/BaSui01/supportflow/llm"
)

// chatClient 封装一次 system + user 对话调用
type chatClient struct {
	provider  llm.Provider
	model     string
	maxTokens int
}

func (c chatClient) complete(ctx context.Context, system, user string, temperature float32, format llm.ResponseFormat) (string, error) {
	req := &llm.ChatRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		MaxTokens:      c.maxTokens,
		Temperature:    temperature,
		ResponseFormat: format,
	}
	if runID, ok := ctxkeys.RunID(ctx); ok {
		req.TraceID = runID
	}
	if node, ok := ctxkeys.Node(ctx); ok {
		req.Metadata = map[string]string{"node": node}
	}

	resp, err := c.provider.Completion(ctx, req)
	if err != nil {
		return "", err
	}
	return llm.FirstContent(resp)
}

// flexBool 兼容 true/false 与 "yes"/"no" 两种写法
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "y":
		*b = true
	case "no", "false", "n":
		*b = false
	default:
		return fmt.Errorf("cannot interpret %q as a boolean", s)
	}
	return nil
}
