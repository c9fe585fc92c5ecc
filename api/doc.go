// Package api 定义 SupportFlow HTTP API 的请求与响应结构。
//
// # API 概览
//
//   - POST /api/v1/ask          回答一个客服问题，返回答案、终态、来源与执行轨迹
//   - GET  /api/v1/runs         按时间倒序列出最近的运行摘要（?limit=n）
//   - GET  /api/v1/runs/{id}    回放一次运行的完整审计轨迹
//   - GET  /health /healthz     存活探针
//   - GET  /ready               就绪探针（检索存储、Redis、数据库）
//   - GET  /version             版本信息
//
// # 认证
//
// 配置了 server.api_keys 时需携带 X-API-Key 请求头；
// 配置了 server.jwt.secret 时也可使用 Authorization: Bearer <token>。
//
// # 响应格式
//
// 所有 JSON 响应包在 handlers.Response 中：success、data、error、timestamp。
package api
