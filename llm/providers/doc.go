// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 providers 提供 OpenAI 兼容接口的公共请求/响应结构与错误映射，
供 openaicompat 聊天客户端与 embedding 客户端共享。

  - OpenAICompat* 系列：请求、响应、用量与错误结构体
  - MapHTTPError：将 HTTP 状态码映射为带 Retryable 标记的 llm.Error
  - ReadErrorMessage：从错误响应体提取可读消息
  - MapTransportError：将网络层错误映射为 llm.Error
*/
package providers
