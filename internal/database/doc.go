// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库接入与连接池管理，
供运行记录持久化与 pgvector 检索后端共用。

# 核心类型

  - Dialector/Open：按 database.driver 选择 postgres、mysql 或
    纯 Go 实现的 sqlite 方言并打开连接。
  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB()、Ping()、
    Stats()、Close() 等生命周期方法，后台健康检查可上报连接数指标。
  - PoolConfig：连接池参数，PoolConfigFrom 从全局配置组装。

# 事务

WithTransaction 执行单次事务，WithTransactionRetry 对死锁、
序列化失败与连接类错误按指数退避重试。
*/
package database
