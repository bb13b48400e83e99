// 版权所有 2026 Teddyd Authors. 版权所有.
//
// 本源代码受 MIT 许可证保护, 详见仓库根目录下的 LICENSE 文件.

/*
Package metrics 提供基于 Prometheus 的指标采集.

# 概述

集中定义 HTTP、语音提供方、熔断器、缓存和会话相关的 Prometheus 指标,
通过 promauto 自动注册. Collector 同时实现语音路由层的指标回调接口.

# 核心类型

  - Collector: 指标采集器, 持有全部 Counter / Histogram / Gauge

# 主要指标

  - http_requests_total / http_request_duration_seconds
  - provider_calls_total / provider_call_duration_seconds
  - circuit_state_changes_total
  - cache_hits_total / cache_misses_total
  - sessions_active / sessions_started_total / sessions_ended_total
*/
package metrics
