package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nourhashem/teddyd/api/handlers"
	"github.com/nourhashem/teddyd/children"
	"github.com/nourhashem/teddyd/config"
	rediscache "github.com/nourhashem/teddyd/internal/cache"
	"github.com/nourhashem/teddyd/internal/metrics"
	"github.com/nourhashem/teddyd/internal/server"
	"github.com/nourhashem/teddyd/internal/telemetry"
	"github.com/nourhashem/teddyd/session"
	"github.com/nourhashem/teddyd/speech"
	speechcache "github.com/nourhashem/teddyd/speech/cache"
	"github.com/nourhashem/teddyd/speech/circuitbreaker"
	"github.com/nourhashem/teddyd/story"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 Teddyd 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 领域组件
	cacheManager *rediscache.Manager
	store        *children.Store
	sessions     *session.Manager
	router       *speech.Router
	generator    *story.Generator

	// Handlers
	healthHandler    *handlers.HealthHandler
	voiceHandler     *handlers.VoiceHandler
	sessionHandler   *handlers.SessionHandler
	childHandler     *handlers.ChildHandler
	dashboardHandler *handlers.DashboardHandler
	storyHandler     *handlers.StoryHandler
	adminHandler     *handlers.AdminHandler
	deviceHandler    *handlers.DeviceHandler

	// 指标收集器
	metricsCollector *metrics.Collector

	// 遥测
	otelProviders *telemetry.Providers

	// 后台 goroutine 生命周期管理
	backgroundCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		otelProviders: otelProviders,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	backgroundCtx, cancel := context.WithCancel(context.Background())
	s.backgroundCancel = cancel

	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("teddyd", s.logger)

	// 2. 初始化领域组件
	if err := s.initComponents(backgroundCtx); err != nil {
		return fmt.Errorf("failed to init components: %w", err)
	}

	// 3. 初始化 Handlers
	s.initHandlers()

	// 4. 启动 HTTP 服务器
	if err := s.startHTTPServer(backgroundCtx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 5. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initComponents 初始化缓存、档案库、会话管理器和语音路由
func (s *Server) initComponents(ctx context.Context) error {
	// 响应缓存后端：Redis 不可用时退化为进程内缓存,
	// 路由层把缓存失败当作未命中, 不影响正确性
	var backend speechcache.Backend
	cacheManager, err := rediscache.NewManager(rediscache.Config{
		Addr:                s.cfg.Redis.Addr,
		Password:            s.cfg.Redis.Password,
		DB:                  s.cfg.Redis.DB,
		PoolSize:            s.cfg.Redis.PoolSize,
		MinIdleConns:        s.cfg.Redis.MinIdleConns,
		DefaultTTL:          s.cfg.Speech.Cache.TranscriptionTTL,
		MaxRetries:          3,
		HealthCheckInterval: 30 * time.Second,
	}, s.logger)
	if err != nil {
		s.logger.Warn("Redis not available, falling back to in-process cache", zap.Error(err))
		backend = newLocalBackend(ctx)
	} else {
		s.cacheManager = cacheManager
		backend = cacheManager
	}
	responseCache := speechcache.New(backend, s.logger)

	// 儿童档案库（sqlite）。失败时禁用档案/仪表盘接口和会话持久化
	store, err := children.Open(s.cfg.Database.Path, s.logger)
	if err != nil {
		s.logger.Warn("Database not available, profile endpoints disabled", zap.Error(err))
	} else {
		s.store = store
	}

	// 会话管理器, 指标回调挂在生命周期钩子上
	sessionCfg := session.Config{
		MaxActive:     s.cfg.Sessions.MaxActive,
		IdleTimeout:   s.cfg.Sessions.IdleTimeout,
		SweepInterval: s.cfg.Sessions.SweepInterval,
	}
	sessionCfg.OnSessionStart = func(sess *session.Session) {
		s.metricsCollector.RecordSessionStarted()
		s.metricsCollector.SetActiveSessions(s.sessions.ActiveCount())
	}
	sessionCfg.OnSessionEnd = func(sess *session.Session) {
		s.metricsCollector.RecordSessionEnded("ended", sessionLifetime(sess))
		s.metricsCollector.SetActiveSessions(s.sessions.ActiveCount())
	}
	sessionCfg.OnSessionTimeout = func(sess *session.Session) {
		s.metricsCollector.RecordSessionEnded("timeout", sessionLifetime(sess))
		s.metricsCollector.SetActiveSessions(s.sessions.ActiveCount())
	}

	var persister session.Persister
	if s.store != nil {
		persister = s.store
	}
	s.sessions = session.NewManager(sessionCfg, persister, s.logger)

	// 后台超时清扫
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sessions.Run(ctx)
	}()

	// 语音提供方注册表
	registry, err := s.buildRegistry()
	if err != nil {
		return err
	}

	// 路由器
	breakerCfg := &circuitbreaker.Config{
		FailureThreshold: s.cfg.Speech.Breaker.FailureThreshold,
		SuccessThreshold: s.cfg.Speech.Breaker.SuccessThreshold,
		Timeout:          s.cfg.Speech.Breaker.CallTimeout,
		RecoveryTimeout:  s.cfg.Speech.Breaker.RecoveryTimeout,
		HalfOpenMaxCalls: s.cfg.Speech.Breaker.HalfOpenMaxCalls,
	}
	s.router = speech.NewRouter(registry, responseCache, speech.RouterOptions{
		TranscriptionTTL: s.cfg.Speech.Cache.TranscriptionTTL,
		SynthesisTTL:     s.cfg.Speech.Cache.SynthesisTTL,
		Breaker:          breakerCfg,
		Metrics:          s.metricsCollector,
		Sessions:         s.sessions,
	}, s.logger)

	// 故事生成器
	s.generator = story.NewGenerator(time.Now().UnixNano())

	return nil
}

// buildRegistry 根据配置注册启用的语音提供方
func (s *Server) buildRegistry() (*speech.Registry, error) {
	registry := speech.NewRegistry()
	sp := s.cfg.Speech

	if sp.Whisper.Enabled && sp.Whisper.APIKey != "" {
		whisperCfg := speech.DefaultWhisperConfig()
		whisperCfg.APIKey = sp.Whisper.APIKey
		if sp.Whisper.BaseURL != "" {
			whisperCfg.BaseURL = sp.Whisper.BaseURL
		}
		if sp.Whisper.Model != "" {
			whisperCfg.Model = sp.Whisper.Model
		}
		if err := registry.Register(speech.NewWhisperProvider(whisperCfg), speech.Descriptor{
			Name:       "whisper",
			Kind:       "whisper",
			Priority:   sp.Whisper.Priority,
			Available:  true,
			Operations: []speech.Operation{speech.OpTranscription},
		}); err != nil {
			return nil, err
		}
	}

	if sp.Azure.Enabled && sp.Azure.Key != "" {
		azureCfg := speech.DefaultAzureConfig()
		azureCfg.APIKey = sp.Azure.Key
		if sp.Azure.Region != "" {
			azureCfg.Region = sp.Azure.Region
		}
		if err := registry.Register(speech.NewAzureProvider(azureCfg), speech.Descriptor{
			Name:       "azure",
			Kind:       "azure",
			Priority:   sp.Azure.Priority,
			Available:  true,
			Operations: []speech.Operation{speech.OpTranscription, speech.OpSynthesis},
		}); err != nil {
			return nil, err
		}
	}

	if sp.ElevenLabs.Enabled && sp.ElevenLabs.APIKey != "" {
		elCfg := speech.DefaultElevenLabsConfig()
		elCfg.APIKey = sp.ElevenLabs.APIKey
		if sp.ElevenLabs.VoiceID != "" {
			elCfg.VoiceID = sp.ElevenLabs.VoiceID
		}
		if err := registry.Register(speech.NewElevenLabsProvider(elCfg), speech.Descriptor{
			Name:       "elevenlabs",
			Kind:       "elevenlabs",
			Priority:   sp.ElevenLabs.Priority,
			Available:  true,
			Operations: []speech.Operation{speech.OpSynthesis},
		}); err != nil {
			return nil, err
		}
	}

	if sp.GTTS.Enabled {
		gttsCfg := speech.DefaultGoogleTTSConfig()
		if sp.GTTS.BaseURL != "" {
			gttsCfg.BaseURL = sp.GTTS.BaseURL
		}
		if err := registry.Register(speech.NewGoogleTTSProvider(gttsCfg), speech.Descriptor{
			Name:       "gtts",
			Kind:       "gtts",
			Priority:   sp.GTTS.Priority,
			Available:  true,
			Operations: []speech.Operation{speech.OpSynthesis},
		}); err != nil {
			return nil, err
		}
	}

	if sp.Offline.Enabled {
		offCfg := speech.DefaultOfflineConfig()
		if sp.Offline.Acknowledgment != "" {
			offCfg.Acknowledgment = sp.Offline.Acknowledgment
		}
		if err := registry.Register(speech.NewOfflineProvider(offCfg), speech.Descriptor{
			Name:       "offline",
			Kind:       "offline",
			Priority:   sp.Offline.Priority,
			Available:  true,
			Operations: []speech.Operation{speech.OpTranscription},
		}); err != nil {
			return nil, err
		}
	}

	s.logger.Info("speech providers registered", zap.Int("count", registry.Len()))
	return registry, nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCriticalCheck(handlers.NewSpeechCheck(func() int {
		available := 0
		for _, p := range s.router.Status().Providers {
			if p.Available {
				available++
			}
		}
		return available
	}))
	if s.cacheManager != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("redis", s.cacheManager.Ping))
	}
	if s.store != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("sqlite", s.store.Ping))
	}

	s.voiceHandler = handlers.NewVoiceHandler(s.router, s.logger)
	s.sessionHandler = handlers.NewSessionHandler(s.sessions, s.logger)
	s.adminHandler = handlers.NewAdminHandler(s.router, s.logger)
	s.storyHandler = handlers.NewStoryHandler(s.generator, s.store, s.router, s.logger)
	s.deviceHandler = handlers.NewDeviceHandler(s.router, s.sessions, s.store, s.logger)

	if s.store != nil {
		s.childHandler = handlers.NewChildHandler(s.store, s.logger)
		s.dashboardHandler = handlers.NewDashboardHandler(s.store, s.logger)
	}

	s.logger.Info("Handlers initialized")
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer(ctx context.Context) error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)

	// 版本信息端点
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// ========================================
	// 语音 API
	// ========================================
	mux.HandleFunc("/api/v1/voice/transcribe", s.voiceHandler.HandleTranscribe)
	mux.HandleFunc("/api/v1/voice/synthesize", s.voiceHandler.HandleSynthesize)

	// ========================================
	// 会话 API
	// ========================================
	mux.HandleFunc("/api/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			s.sessionHandler.HandleStart(w, r)
			return
		}
		s.sessionHandler.HandleList(w, r)
	})
	mux.HandleFunc("/api/v1/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			s.sessionHandler.HandleEnd(w, r)
			return
		}
		s.sessionHandler.HandleGet(w, r)
	})

	// ========================================
	// 儿童档案与仪表盘 API
	// ========================================
	if s.childHandler != nil {
		mux.HandleFunc("/api/v1/children", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				s.childHandler.HandleCreate(w, r)
				return
			}
			s.childHandler.HandleList(w, r)
		})
		mux.HandleFunc("/api/v1/children/{id}", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPut:
				s.childHandler.HandleUpdate(w, r)
			case http.MethodDelete:
				s.childHandler.HandleDelete(w, r)
			default:
				s.childHandler.HandleGet(w, r)
			}
		})
		mux.HandleFunc("/api/v1/children/{id}/sessions", s.childHandler.HandleHistory)
		mux.HandleFunc("/api/v1/dashboard", s.dashboardHandler.HandleSummary)
		s.logger.Info("Profile and dashboard API routes registered")
	}

	// ========================================
	// 故事 API
	// ========================================
	mux.HandleFunc("/api/v1/stories", s.storyHandler.HandleGenerate)
	mux.HandleFunc("/api/v1/stories/themes", s.storyHandler.HandleThemes)

	// ========================================
	// 管理 API
	// ========================================
	mux.HandleFunc("/api/v1/admin/status", s.adminHandler.HandleStatus)
	mux.HandleFunc("/api/v1/admin/providers/{name}/reset", s.adminHandler.HandleResetBreaker)
	mux.HandleFunc("/api/v1/admin/providers/{name}/availability", s.adminHandler.HandleAvailability)

	// ========================================
	// 设备网关（WebSocket）
	// ========================================
	mux.HandleFunc("/api/v1/device/connect", s.deviceHandler.HandleConnect)

	// ========================================
	// 构建中间件链
	// ========================================
	skipAuthPaths := []string{
		"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics",
		"/api/v1/device/connect", // 设备走独立的 device_id 绑定
	}
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
	}
	if s.cfg.Telemetry.Enabled {
		middlewares = append(middlewares, OTelTracing())
	}
	middlewares = append(middlewares,
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)
	if s.cfg.Auth.Enabled {
		middlewares = append(middlewares, JWTAuth(s.cfg.Auth, skipAuthPaths, s.logger))
	}
	handler := Chain(mux, middlewares...)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout, // 2x ReadTimeout
		MaxHeaderBytes:  1 << 20,                      // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// sessionLifetime 返回会话从开始到结束的实际时长
func sessionLifetime(s *session.Session) time.Duration {
	if s.EndedAt == nil {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	// 使用 httpManager 的 WaitForShutdown（它会监听信号）
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	// 执行清理
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 0. 停止后台 goroutine（会话清扫、限流器清理）
	if s.backgroundCancel != nil {
		s.backgroundCancel()
	}

	// 1. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭缓存连接
	if s.cacheManager != nil {
		if err := s.cacheManager.Close(); err != nil {
			s.logger.Error("Cache shutdown error", zap.Error(err))
		}
	}

	// 4. 刷新遥测数据
	if s.otelProviders != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.otelProviders.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
		cancel()
	}

	// 5. 等待所有 goroutine 完成
	s.wg.Wait()

	s.logger.Info("Graceful shutdown completed")
}
