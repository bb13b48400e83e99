// 版权所有 2026 Teddyd Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的缓存管理能力，作为语音响应缓存的后端，
支持连接池、健康检查与优雅关闭。

# 概述

本包封装 go-redis 客户端，为 speech/cache.ResponseCache 提供
Backend 实现。Manager 负责连接生命周期管理，包括初始化、
健康检查与优雅关闭。

# 核心类型

  - Manager：缓存管理器，持有 Redis 客户端与连接池配置，
    提供 Get/Set/Delete 基础操作。Get 返回 (value, found, err)
    三元组：未命中不是错误，只有后端故障才返回 err。
  - Config：缓存配置，包含地址、密码、连接池大小、默认 TTL
    与健康检查间隔等参数。

# 主要能力

  - 键值读写：语音请求指纹到序列化结果的存取。
  - 连接池管理：通过 PoolSize 与 MinIdleConns 控制连接复用。
  - 健康检查：后台定时 Ping 检测，异常时通过 zap 日志告警。
  - 优雅关闭：Close 方法安全释放底层 Redis 连接。
*/
package cache
