/*
包 speech 实现玩具后端的多服务商语音请求路由层。

# 概述

本包将语音转写 (STT) 与语音合成 (TTS) 抽象为统一的 Provider 执行契约，
并在其上提供自动故障转移、按服务商隔离的熔断保护与指纹化响应缓存。
调用方通过 Router 发起请求，不感知底层服务商的身份与失败细节。

# 核心组件

  - Provider：统一的服务商执行接口，Execute(ctx, req) 一次完成一种操作。
  - Descriptor：服务商描述（名称、优先级、可用性、支持的操作集合）。
  - Registry：线程安全的服务商注册表，按优先级返回候选序列。
  - Router：编排器。缓存查询 → 按优先级顺序逐个尝试 → 熔断器隔离 →
    成功结果写回缓存并记录指标。
  - circuitbreaker 子包：Closed/Open/HalfOpen 状态机。
  - cache 子包：基于请求指纹的响应缓存。

# 失败语义

单个服务商的失败在 Router 内部吸收，只记录日志并尝试下一候选；
全部候选耗尽时返回 ErrNoProviderAvailable，不泄露服务商内部信息。
*/
package speech
