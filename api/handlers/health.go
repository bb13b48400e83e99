package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// HealthHandler 聚合各后端依赖的健康检查。
// 依赖分两档：critical 检查失败时就绪探针返回 503；
// 非 critical 检查失败时服务仍可服务流量（降级运行, 如 Redis
// 失联后退化为进程内缓存）, 状态报告为 degraded 但仍返回 200。
type HealthHandler struct {
	logger *zap.Logger
	mu     sync.RWMutex
	checks []registeredCheck
}

type registeredCheck struct {
	check    HealthCheck
	critical bool
}

// HealthCheck 单项依赖检查
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus 就绪探针响应体
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// RegisterCheck 注册降级型检查：失败时报告 degraded 但不拦截流量
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, registeredCheck{check: check})
}

// RegisterCriticalCheck 注册关键检查：失败时就绪探针返回 503
func (h *HealthHandler) RegisterCriticalCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, registeredCheck{check: check, critical: true})
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleHealth 处理 /health 请求
// @Summary 健康检查
// @Description 进程存活即返回 healthy, 不触发依赖检查
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务正常"
// @Router /health [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// HandleHealthz 处理 /healthz 请求（Kubernetes 活跃度探针）
// @Summary Kubernetes 活跃度探针
// @Description 只确认进程在运行
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务处于活动状态"
// @Router /healthz [get]
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// HandleReady 处理 /ready 请求（就绪检查）
// @Summary 准备情况检查
// @Description 逐项执行依赖检查, 关键依赖失败时返回 503
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务已准备就绪（可能降级）"
// @Failure 503 {object} HealthStatus "关键依赖不可用"
// @Router /ready [get]
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checks := make([]registeredCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}

	criticalFailed := false
	for _, rc := range checks {
		start := time.Now()
		err := rc.check.Check(ctx)
		latency := time.Since(start)

		result := CheckResult{Status: "pass", Latency: latency.String()}
		if err != nil {
			result.Status = "fail"
			result.Message = err.Error()
			if rc.critical {
				criticalFailed = true
			} else if status.Status == "healthy" {
				status.Status = "degraded"
			}

			h.logger.Warn("health check failed",
				zap.String("check", rc.check.Name()),
				zap.Bool("critical", rc.critical),
				zap.Error(err),
				zap.Duration("latency", latency),
			)
		}
		status.Checks[rc.check.Name()] = result
	}

	if criticalFailed {
		status.Status = "unhealthy"
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

// HandleVersion 处理 /version 请求
// @Summary 版本信息
// @Description 返回 ldflags 注入的构建信息
// @Tags 健康
// @Produce json
// @Success 200 {object} map[string]string "版本信息"
// @Router /version [get]
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, map[string]string{
			"version":    version,
			"build_time": buildTime,
			"git_commit": gitCommit,
		})
	}
}

// =============================================================================
// 🔧 内置健康检查实现
// =============================================================================

// PingCheck 把一个 ping 函数适配成 HealthCheck, 用于数据库和 Redis
type PingCheck struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingCheck 创建基于 ping 函数的健康检查
func NewPingCheck(name string, ping func(ctx context.Context) error) *PingCheck {
	return &PingCheck{name: name, ping: ping}
}

func (c *PingCheck) Name() string { return c.name }

func (c *PingCheck) Check(ctx context.Context) error { return c.ping(ctx) }

// SpeechCheck 在没有任何语音提供者可用时报告失败。
// 路由器没有可用提供者时所有语音请求必然失败, 所以这是关键检查。
type SpeechCheck struct {
	available func() int
}

// NewSpeechCheck 创建语音提供者可用性检查, available 返回当前可用提供者数
func NewSpeechCheck(available func() int) *SpeechCheck {
	return &SpeechCheck{available: available}
}

func (c *SpeechCheck) Name() string { return "speech_providers" }

func (c *SpeechCheck) Check(context.Context) error {
	if c.available() == 0 {
		return errors.New("no speech provider available")
	}
	return nil
}
