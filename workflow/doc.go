// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供自纠正 RAG 客服工作流的编排引擎。

# 概述

Engine 驱动一个固定的有界状态机：

	Retrieve → Grade → [Sufficiency Gate] → Generate → Validate → [Retry Gate]
	                         │                                          │
	                         └→ end_insufficient      ┌── Regenerate ←──┤
	                                                  │                 ├→ end_success
	                                                  └──→ Validate     └→ end_failed

每个节点读取 State，返回部分更新 Update，由 Engine 合并并追加一条 StepRecord。
唯一的环路是 Regenerate → Validate → Retry Gate，由 CheckValidation 保证有界，
单次运行的节点访问次数不超过 MaxVisits(maxRetries) = 4 + 2*maxRetries + 1。

# 核心接口与类型

  - Engine          : 编排器，Run / Ask
  - State / Update  : 单次运行的工作流状态与部分更新
  - StepRecord      : 审计轨迹条目（仅用于诊断，不参与控制流）
  - Grader          : 相关性评分接口（LLMGrader 实现）
  - Generator       : 答案生成接口（LLMGenerator 实现，含严格重生成模式）
  - Validator       : 答案溯源校验接口（LLMValidator 实现）
  - CheckSufficiency: 充分性门控（纯函数）
  - CheckValidation : 重试门控（纯函数）
  - Observer        : 节点与运行完成回调（指标、持久化）

# 失败策略

  - 致命：检索失败、配置错误、空问题、上下文取消/超时，以 *types.Error 返回
  - 失败放行：Grader / Validator 出错时按 FailPolicy 处理（默认 open）
  - 回退路径：Generator 结构化输出失败时回退纯文本，再失败则给出降级草稿
*/
package workflow
