// 版权所有 2026 Teddyd Authors. 版权所有.
//
// 本源代码受 MIT 许可证保护, 详见仓库根目录下的 LICENSE 文件.

/*
Package api 定义 Teddyd HTTP API 的请求与响应类型.

# 概述

语音、会话、儿童档案、故事和管理接口的 DTO 定义, 与内部领域类型解耦.
具体的 HTTP 处理逻辑位于子包 handlers.

# 核心类型

  - TranscribeResponse / SynthesizeRequest / SynthesizeResponse: 语音接口
  - StartSessionRequest / SessionResponse: 会话生命周期
  - ChildRequest: 儿童档案管理
  - StoryRequest / StoryResponse: 睡前故事生成
  - AvailabilityRequest: 提供方可用性管理
*/
package api
