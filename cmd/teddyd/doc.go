// 版权所有 2026 Teddyd Authors. 版权所有.
//
// 本源代码受 MIT 许可证保护, 详见仓库根目录下的 LICENSE 文件.

/*
Package main 提供 Teddyd 服务端程序入口.

# 概述

cmd/teddyd 是儿童对话玩具后端的可执行入口, 提供语音识别/合成路由、
会话管理、儿童档案、故事生成和设备 WebSocket 网关. 程序支持 YAML
配置文件加载、结构化日志（zap）、Prometheus 指标采集和 OpenTelemetry
链路追踪.

# 核心类型

  - Server       — 主服务器, 管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware   — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - localBackend — Redis 不可用时的进程内缓存后备

# 主要能力

  - 子命令：serve（启动服务）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    MetricsMiddleware、OTelTracing、CORS、RateLimiter（基于 IP）、
    JWTAuth（HS256, 家长仪表盘）
  - 语音提供者按配置注册, 优先级故障转移由 speech.Router 负责
  - Redis 失联时自动退化为进程内响应缓存, sqlite 失联时禁用档案接口
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics → 关缓存 → 刷遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
