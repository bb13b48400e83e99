// =============================================================================
// 📦 Teddyd 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Log:       DefaultLogConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Speech:    DefaultSpeechConfig(),
		Sessions:  DefaultSessionsConfig(),
		Auth:      DefaultAuthConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9090,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Path: "teddyd.db",
	}
}

// DefaultSpeechConfig 返回默认语音配置
// 识别优先级: whisper 10 / azure 8 / 离线兜底 5
// 合成优先级: elevenlabs 10 / azure 8 / gtts 5
func DefaultSpeechConfig() SpeechConfig {
	return SpeechConfig{
		DefaultLanguage: "en",
		Whisper: WhisperProviderConfig{
			Enabled:  true,
			BaseURL:  "https://api.openai.com",
			Model:    "whisper-1",
			Priority: 10,
		},
		Azure: AzureProviderConfig{
			Enabled:  true,
			Region:   "westeurope",
			Priority: 8,
		},
		ElevenLabs: ElevenLabsProviderConfig{
			Enabled:  true,
			Priority: 10,
		},
		GTTS: GTTSProviderConfig{
			Enabled:  true,
			BaseURL:  "https://translate.google.com",
			Priority: 5,
		},
		Offline: OfflineProviderConfig{
			Enabled:        true,
			Acknowledgment: "I heard you, little friend!",
			Priority:       5,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 3,
			CallTimeout:      30 * time.Second,
			RecoveryTimeout:  60 * time.Second,
			HalfOpenMaxCalls: 3,
		},
		Cache: CacheTTLConfig{
			TranscriptionTTL: 1 * time.Hour,
			SynthesisTTL:     24 * time.Hour,
		},
	}
}

// DefaultSessionsConfig 返回默认会话配置
func DefaultSessionsConfig() SessionsConfig {
	return SessionsConfig{
		MaxActive:     50,
		IdleTimeout:   5 * time.Minute,
		SweepInterval: 30 * time.Second,
	}
}

// DefaultAuthConfig 返回默认认证配置
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Enabled:  false,
		TokenTTL: 24 * time.Hour,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "teddyd",
		SampleRate:   1.0,
	}
}
