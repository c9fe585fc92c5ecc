// Package structured 解析模型返回的结构化 JSON 输出。
//
// 模型经常在 JSON 外面包裹 Markdown 代码块或解释性文字，
// Decode 会先截取第一个 '{' 到最后一个 '}' 之间的内容再解码。
package structured

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrNoJSONObject 响应中找不到 JSON 对象
var ErrNoJSONObject = errors.New("no JSON object in model output")

// ExtractJSON 返回 s 中第一个 '{' 到最后一个 '}' 之间的子串。
func ExtractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", ErrNoJSONObject
	}
	return s[start : end+1], nil
}

// Decode 从模型输出中提取 JSON 对象并解码到 out。
func Decode(content string, out any) error {
	raw, err := ExtractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode structured output: %w", err)
	}
	return nil
}

// Clamp 将 v 限制在 [lo, hi] 区间内。
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
