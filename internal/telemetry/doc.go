// 版权所有 2026 Teddyd Authors. 版权所有.
//
// 本源代码受 MIT 许可证保护, 详见仓库根目录下的 LICENSE 文件.

/*
Package telemetry 提供基于 OpenTelemetry 的遥测初始化.

# 概述

封装 OTel SDK 的链路追踪和指标导出设置. 遥测关闭时(默认), 不建立任何
外部连接, 全局 Provider 保持 noop 行为, 对主流程零开销.

# 核心类型

  - Providers: 持有 TracerProvider 和 MeterProvider, 负责优雅关闭

# 主要能力

  - OTLP gRPC 导出器(traces + metrics), 指向单一 Collector 端点
  - 按比例采样(TraceIDRatioBased)
  - W3C TraceContext + Baggage 传播
  - Shutdown 刷新未导出数据, 对 noop Providers 安全
*/
package telemetry
