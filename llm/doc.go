// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供统一的大语言模型接入层：Provider 抽象、请求与响应模型、
统一错误码，以及带重试与熔断的弹性包装。

# Provider 抽象

核心接口是 [Provider]，包含同步补全、健康检查与名称。
相关性评估、答案生成与答案校验都只依赖该接口，
因此可以在不改动工作流的情况下替换底层模型服务。

# 结构化输出

[ChatRequest].ResponseFormat 设置为 [ResponseFormatJSON] 时，
Provider 应请求服务端返回 JSON 对象。解析失败由调用方决定回退策略。

# 弹性

[ResilientProvider] 按 装饰器 模式组合 retry 与 circuitbreaker：
只有 Retryable 的 [Error] 会被重试，客户端错误不计入熔断失败。
*/
package llm
