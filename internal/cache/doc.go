// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的缓存能力，用于复用已成功的问答结果。

# 核心类型

  - Manager：持有 go-redis 客户端，提供 Get/Set/Delete 与
    GetJSON/SetJSON，后台定时 Ping 检测连接状态。
  - Config：连接与连接池参数，ConfigFrom 从全局配置组装。
  - AnswerCache：只缓存终态为 success 的工作流结果，
    键为前缀加规范化问题与运行参数的 SHA-256。

# 错误语义

Redis 故障不会影响问答流程：查询失败视为未命中，写入失败仅记录日志。
ErrCacheMiss 与 IsCacheMiss 用于区分未命中与连接错误。
*/
package cache
