// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 SupportFlow 服务端程序入口。

# 概述

cmd/supportflow 是 SupportFlow 的可执行入口（spf13/cobra），提供 HTTP API 服务、
单次问答、健康检查和版本查询等子命令。程序支持 YAML 配置文件与
SUPPORTFLOW_ 前缀的环境变量、结构化日志（zap）、Prometheus 指标与 OpenTelemetry 追踪。

# 核心类型

  - App       : 按配置装配检索后端、LLM、工作流引擎、答案缓存与运行记录存储
  - Server    : 管理 API 与 Metrics 双端口及优雅关闭
  - Middleware: HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、ask、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、Metrics、
    RequestLogger、CORS、RateLimiter（基于 IP）、APIKeyAuth、JWTAuth
  - 路由：POST /api/v1/ask，GET /api/v1/runs 与 /api/v1/runs/{id}（启用数据库时），
    /health、/healthz、/ready、/readyz、/version
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
