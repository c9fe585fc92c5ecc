// =============================================================================
// SupportFlow 主入口
// =============================================================================
// 纠错式检索增强问答服务，包含 HTTP API、健康检查、Prometheus 指标
//
// 使用方法:
//
//	supportflow serve                          # 启动服务
//	supportflow serve --config config.yaml     # 指定配置文件
//	supportflow ask "如何重置密码？"             # 单次问答
//	supportflow ask --json --max-retries 1 "…" # 输出完整 JSON
//	supportflow version                        # 显示版本信息
//	supportflow health                         # 健康检查
// =============================================================================

// @title SupportFlow API
// @version 1.0.0
// @description Self-correcting retrieval-augmented customer support answers.
// @description Answers are graded, generated, validated for grounding and regenerated when needed.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

package main

import (
	"os"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
