package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 10, cfg.Speech.Whisper.Priority)
	assert.Equal(t, 5, cfg.Speech.Offline.Priority)
	assert.Equal(t, 1*time.Hour, cfg.Speech.Cache.TranscriptionTTL)
	assert.Equal(t, 24*time.Hour, cfg.Speech.Cache.SynthesisTTL)
	assert.Equal(t, 50, cfg.Sessions.MaxActive)
}

func TestLoader_FromYAMLFile(t *testing.T) {
	content := `
server:
  http_port: 9000
speech:
  default_language: ar
  whisper:
    api_key: sk-test
    priority: 12
  breaker:
    failure_threshold: 7
sessions:
  max_active: 5
  idle_timeout: 2m
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "ar", cfg.Speech.DefaultLanguage)
	assert.Equal(t, "sk-test", cfg.Speech.Whisper.APIKey)
	assert.Equal(t, 12, cfg.Speech.Whisper.Priority)
	assert.Equal(t, 7, cfg.Speech.Breaker.FailureThreshold)
	assert.Equal(t, 5, cfg.Sessions.MaxActive)
	assert.Equal(t, 2*time.Minute, cfg.Sessions.IdleTimeout)

	// untouched sections keep their defaults
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Speech.Breaker.SuccessThreshold)
}

func TestLoader_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("TEDDYD_SERVER_HTTP_PORT", "7070")
	t.Setenv("TEDDYD_SPEECH_AZURE_KEY", "azure-secret")
	t.Setenv("TEDDYD_SPEECH_BREAKER_RECOVERY_TIMEOUT", "90s")
	t.Setenv("TEDDYD_SPEECH_OFFLINE_ACKNOWLEDGMENT", "سمعتك يا صديقي")
	t.Setenv("TEDDYD_LOG_OUTPUT_PATHS", "stdout, /var/log/teddyd.log")
	t.Setenv("TEDDYD_AUTH_ENABLED", "true")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, "azure-secret", cfg.Speech.Azure.Key)
	assert.Equal(t, 90*time.Second, cfg.Speech.Breaker.RecoveryTimeout)
	assert.Equal(t, "سمعتك يا صديقي", cfg.Speech.Offline.Acknowledgment)
	assert.Equal(t, []string{"stdout", "/var/log/teddyd.log"}, cfg.Log.OutputPaths)
	assert.True(t, cfg.Auth.Enabled)
}

func TestLoader_EnvBeatsFile(t *testing.T) {
	content := "server:\n  http_port: 9000\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TEDDYD_SERVER_HTTP_PORT", "9999")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.HTTPPort)
}

func TestLoader_Validators(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.NoError(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.HTTPPort = 0 }, true},
		{"bad failure threshold", func(c *Config) { c.Speech.Breaker.FailureThreshold = 0 }, true},
		{"bad cache ttl", func(c *Config) { c.Speech.Cache.SynthesisTTL = 0 }, true},
		{"bad max active", func(c *Config) { c.Sessions.MaxActive = -1 }, true},
		{"auth without secret", func(c *Config) { c.Auth.Enabled = true; c.Auth.JWTSecret = "" }, true},
		{"auth with secret", func(c *Config) { c.Auth.Enabled = true; c.Auth.JWTSecret = "s3cret" }, false},
		{
			"no transcription provider",
			func(c *Config) {
				c.Speech.Whisper.Enabled = false
				c.Speech.Azure.Enabled = false
				c.Speech.Offline.Enabled = false
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
