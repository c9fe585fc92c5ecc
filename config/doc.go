// Package config 提供 SupportFlow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序加载，
// 加载完成后执行验证器。workflow 段落定义单次运行的默认参数
// （最大重试次数、检索数量、最少相关文档数）与各外部调用的超时。
package config
