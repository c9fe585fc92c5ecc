// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 SupportFlow HTTP API 的请求处理器实现。

# 核心类型

  - AskHandler     : POST /api/v1/ask，调用 Asker 执行一次问答
  - RunsHandler    : 运行记录的列表与回放
  - HealthHandler  : /health、/ready、/version
  - Response       : 统一 JSON 响应结构（success + data + error + timestamp）
  - ResponseWriter : 包装 http.ResponseWriter 以捕获状态码与响应大小

# 错误映射

WriteError 接受任意 error：*types.Error 按错误码映射 HTTP 状态
（INVALID_REQUEST/INVALID_CONFIG → 400，RETRIEVAL_UNAVAILABLE → 503，
TIMEOUT → 504，CANCELED → 499，NOT_FOUND → 404），其余一律 500。

问答的三种终态（success、insufficient_data、validation_failed）都是正常结果，
返回 200，由 data.status 区分。
*/
package handlers
