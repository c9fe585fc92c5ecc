// Package runstore 持久化工作流运行记录与逐节点审计轨迹。
//
// Store 实现 workflow.Observer，挂到引擎上后每次到达终止节点的运行
// 都会写入 workflow_runs 与 workflow_steps 两张表，供 HTTP 接口回放查询。
// 底层通过 GORM 访问 postgres、mysql 或 sqlite。
package runstore
