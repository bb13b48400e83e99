// 版权所有 2026 Teddyd Authors. 版权所有.
//
// 本源代码受 MIT 许可证保护, 详见仓库根目录下的 LICENSE 文件.

/*
Package server 提供 HTTP 服务器生命周期管理.

# 概述

封装 net/http.Server 的启动、监听与优雅停机. 服务器在后台 goroutine
中运行, 启动错误通过 Errors 通道异步上报, 停机时等待在途请求完成.

# 核心类型

  - Manager: 服务器管理器, Start / Shutdown / WaitForShutdown
  - ManagerConfig: 地址、读写超时与停机超时配置

# 主要能力

  - 先 Listen 再 Serve, BoundAddr 返回实际绑定地址(支持 :0 随机端口)
  - 可配置的停机超时, 超时后强制关闭
  - IsRunning / Addr 状态查询
*/
package server
