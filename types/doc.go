// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 SupportFlow 全局共享的错误类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包。workflow、rag、llm、api
等上层模块通过统一的 ErrorCode 与 Error 结构体表达致命错误，
HTTP 层再据此映射状态码。

# 错误分类

  - 工作流致命错误: INVALID_REQUEST, INVALID_CONFIG, RETRIEVAL_UNAVAILABLE,
    CANCELED, TIMEOUT, INTERNAL_ERROR
  - 上游服务错误: RATE_LIMITED, UPSTREAM_TIMEOUT, UPSTREAM_ERROR,
    SERVICE_UNAVAILABLE 等
  - 存储错误: NOT_FOUND, STORAGE_ERROR

# 使用方式

	err := types.NewError(types.ErrRetrievalUnavailable, "vector search failed").
		WithCause(cause).
		WithRetryable(true)

	if types.GetErrorCode(err) == types.ErrRetrievalUnavailable {
		// ...
	}
*/
package types
