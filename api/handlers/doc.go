// 版权所有 2026 Teddyd Authors. 版权所有.
//
// 本源代码受 MIT 许可证保护, 详见仓库根目录下的 LICENSE 文件.

/*
Package handlers 实现 Teddyd HTTP API 的处理器.

# 概述

每类资源一个处理器: 语音（转写/合成）、会话、儿童档案、故事、
仪表盘、管理和健康检查, 另有玩具设备的 WebSocket 网关.
统一响应结构和错误码映射在 common.go.

# 核心类型

  - VoiceHandler: 语音转写与合成
  - SessionHandler: 会话生命周期
  - ChildHandler / DashboardHandler: 档案与家长视图
  - StoryHandler: 睡前故事生成
  - AdminHandler: 路由状态、熔断器复位、提供方开关
  - DeviceHandler: 设备长连接（音频上行、语音下行）
  - HealthHandler: 健康/就绪探针
*/
package handlers
