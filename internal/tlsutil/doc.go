// Package tlsutil 提供集中式 TLS 配置与共享的 HTTP Transport，
// 供 LLM、embedding 与 Qdrant 客户端使用（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
