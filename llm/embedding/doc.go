// Package embedding 提供查询向量化的统一接口与 OpenAI 兼容实现。
//
// 检索时只需要把用户问题转换为向量；文档向量由离线流程写入向量库，
// EmbedDocuments 仅供种子数据与测试使用。
package embedding
