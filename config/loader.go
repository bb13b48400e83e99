// =============================================================================
// 📦 Teddyd 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("TEDDYD").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 teddyd 的完整配置结构
type Config struct {
	// Server 服务器配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Redis 响应缓存后端配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 儿童档案数据库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Speech 语音提供者与路由配置
	Speech SpeechConfig `yaml:"speech" env:"SPEECH"`

	// Sessions 会话生命周期配置
	Sessions SessionsConfig `yaml:"sessions" env:"SESSIONS"`

	// Auth 家长仪表盘认证配置
	Auth AuthConfig `yaml:"auth" env:"AUTH"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Prometheus 指标端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 仪表盘跨域白名单
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时（音频响应较大，要比读取宽松）
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每台设备每秒请求上限
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 突发请求上限
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig 数据库配置（sqlite，纯 Go 驱动）
type DatabaseConfig struct {
	// sqlite 文件路径，":memory:" 为内存库
	Path string `yaml:"path" env:"PATH"`
}

// SpeechConfig 语音路由配置
type SpeechConfig struct {
	// 默认语言（ISO-639-1）
	DefaultLanguage string `yaml:"default_language" env:"DEFAULT_LANGUAGE"`

	// 各提供者配置
	Whisper    WhisperProviderConfig    `yaml:"whisper" env:"WHISPER"`
	Azure      AzureProviderConfig      `yaml:"azure" env:"AZURE"`
	ElevenLabs ElevenLabsProviderConfig `yaml:"elevenlabs" env:"ELEVENLABS"`
	GTTS       GTTSProviderConfig       `yaml:"gtts" env:"GTTS"`
	Offline    OfflineProviderConfig    `yaml:"offline" env:"OFFLINE"`

	// Breaker 熔断器配置
	Breaker BreakerConfig `yaml:"breaker" env:"BREAKER"`

	// Cache 响应缓存 TTL
	Cache CacheTTLConfig `yaml:"cache" env:"CACHE"`
}

// WhisperProviderConfig OpenAI Whisper 语音识别配置
type WhisperProviderConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	APIKey   string `yaml:"api_key" env:"API_KEY"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL"`
	Model    string `yaml:"model" env:"MODEL"`
	Priority int    `yaml:"priority" env:"PRIORITY"`
}

// AzureProviderConfig Azure 语音服务配置（识别 + 合成）
type AzureProviderConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Key      string `yaml:"key" env:"KEY"`
	Region   string `yaml:"region" env:"REGION"`
	Priority int    `yaml:"priority" env:"PRIORITY"`
}

// ElevenLabsProviderConfig ElevenLabs 语音合成配置
type ElevenLabsProviderConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	APIKey   string `yaml:"api_key" env:"API_KEY"`
	VoiceID  string `yaml:"voice_id" env:"VOICE_ID"`
	Priority int    `yaml:"priority" env:"PRIORITY"`
}

// GTTSProviderConfig 免凭证合成兜底配置
type GTTSProviderConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL"`
	Priority int    `yaml:"priority" env:"PRIORITY"`
}

// OfflineProviderConfig 离线应答提供者配置
type OfflineProviderConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 离线时返回的固定应答语
	Acknowledgment string `yaml:"acknowledgment" env:"ACKNOWLEDGMENT"`
	Priority       int    `yaml:"priority" env:"PRIORITY"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	// 连续失败多少次后打开
	FailureThreshold int `yaml:"failure_threshold" env:"FAILURE_THRESHOLD"`
	// 半开状态连续成功多少次后关闭
	SuccessThreshold int `yaml:"success_threshold" env:"SUCCESS_THRESHOLD"`
	// 单次提供者调用超时
	CallTimeout time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT"`
	// 打开后多久进入半开
	RecoveryTimeout time.Duration `yaml:"recovery_timeout" env:"RECOVERY_TIMEOUT"`
	// 半开状态最大并发调用数
	HalfOpenMaxCalls int `yaml:"half_open_max_calls" env:"HALF_OPEN_MAX_CALLS"`
}

// CacheTTLConfig 响应缓存 TTL 配置
type CacheTTLConfig struct {
	// 识别结果缓存时长
	TranscriptionTTL time.Duration `yaml:"transcription_ttl" env:"TRANSCRIPTION_TTL"`
	// 合成音频缓存时长
	SynthesisTTL time.Duration `yaml:"synthesis_ttl" env:"SYNTHESIS_TTL"`
}

// SessionsConfig 会话配置
type SessionsConfig struct {
	// 并发会话上限，超出时逐出最旧会话
	MaxActive int `yaml:"max_active" env:"MAX_ACTIVE"`
	// 空闲超时
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	// 超时清扫间隔
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// AuthConfig 家长仪表盘认证配置
type AuthConfig struct {
	// 是否启用 JWT 认证
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// JWT 签名密钥
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	// Token 有效期
	TokenTTL time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "TEDDYD",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 验证服务器配置
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.Server.RateLimitRPS <= 0 {
		errs = append(errs, "rate_limit_rps must be positive")
	}

	// 验证熔断器配置
	if c.Speech.Breaker.FailureThreshold <= 0 {
		errs = append(errs, "breaker failure_threshold must be positive")
	}
	if c.Speech.Breaker.SuccessThreshold <= 0 {
		errs = append(errs, "breaker success_threshold must be positive")
	}
	if c.Speech.Breaker.HalfOpenMaxCalls <= 0 {
		errs = append(errs, "breaker half_open_max_calls must be positive")
	}

	// 验证缓存配置
	if c.Speech.Cache.TranscriptionTTL <= 0 || c.Speech.Cache.SynthesisTTL <= 0 {
		errs = append(errs, "cache TTLs must be positive")
	}

	// 验证会话配置
	if c.Sessions.MaxActive <= 0 {
		errs = append(errs, "sessions max_active must be positive")
	}
	if c.Sessions.IdleTimeout <= 0 {
		errs = append(errs, "sessions idle_timeout must be positive")
	}

	// 启用认证时必须提供签名密钥
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		errs = append(errs, "auth jwt_secret is required when auth is enabled")
	}

	// 至少要有一个识别提供者可用
	if !c.Speech.Whisper.Enabled && !c.Speech.Azure.Enabled && !c.Speech.Offline.Enabled {
		errs = append(errs, "at least one transcription provider must be enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
