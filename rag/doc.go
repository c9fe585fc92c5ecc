// Copyright 2025-2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package rag 提供客服工作流的检索端口及其向量存储实现。

工作流只依赖 Retriever 接口：给定问题返回按相关度排序的 Passage 列表。
VectorRetriever 组合一个 embedding.Provider 与一个 VectorStore 实现该接口。

# 核心接口/类型

  - Passage: 检索得到的文档片段（内容、来源、可选分数、元数据）
  - Retriever: 检索端口，Retrieve(ctx, query, k)
  - VectorStore: 向量存储接口（AddDocuments / Search / Count）
  - InMemoryVectorStore: 内存实现，支持 JSONL 种子文件
  - QdrantStore: Qdrant REST API 实现
  - PGVectorStore: PostgreSQL + pgvector 实现（基于 gorm）

# 错误约定

Retriever 的任何失败都包装为 types.ErrRetrievalUnavailable；
上下文取消与超时保留 CANCELED / TIMEOUT 错误码。
*/
package rag
