// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
优雅关闭与系统信号监听。

SupportFlow 同时运行问答 API 与 Prometheus 指标两个监听，
各自由一个 Manager 管理：

  - Start 在后台 goroutine 中服务，Addr 返回实际监听地址。
  - Shutdown 在配置的超时内排空请求，可重复调用。
  - Wait 监听 SIGINT/SIGTERM、调用方 ctx 与异步服务错误，
    任一发生后触发优雅关闭。
*/
package server
