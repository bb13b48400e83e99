package speech

import "time"

// WhisperConfig配置了OpenAI Whisper STT供应商.
type WhisperConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"` // whisper-1
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// AzureConfig配置了Azure语音服务供应商（STT 与 TTS）.
type AzureConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	Region  string        `json:"region" yaml:"region"`
	Voice   string        `json:"voice,omitempty" yaml:"voice,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ElevenLabsConfig配置了ElevenLabs TTS供应商.
type ElevenLabsConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"` // eleven_multilingual_v2
	VoiceID string        `json:"voice_id,omitempty" yaml:"voice_id,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// GoogleTTSConfig配置了Google翻译TTS后备供应商.
type GoogleTTSConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// OfflineConfig配置了离线应答供应商.
// Acknowledgment 是无法联网时返回的固定确认短语.
type OfflineConfig struct {
	Acknowledgment string `json:"acknowledgment" yaml:"acknowledgment"`
}

// DefaultWhisperConfig 返回 Whisper 默认配置
func DefaultWhisperConfig() WhisperConfig {
	return WhisperConfig{
		BaseURL: "https://api.openai.com",
		Model:   "whisper-1",
		Timeout: 120 * time.Second,
	}
}

// DefaultAzureConfig 返回 Azure 语音服务默认配置
func DefaultAzureConfig() AzureConfig {
	return AzureConfig{
		Region:  "westeurope",
		Timeout: 60 * time.Second,
	}
}

// DefaultElevenLabsConfig 返回 ElevenLabs 默认配置
func DefaultElevenLabsConfig() ElevenLabsConfig {
	return ElevenLabsConfig{
		BaseURL: "https://api.elevenlabs.io",
		Model:   "eleven_multilingual_v2",
		Timeout: 60 * time.Second,
	}
}

// DefaultGoogleTTSConfig 返回 Google TTS 默认配置
func DefaultGoogleTTSConfig() GoogleTTSConfig {
	return GoogleTTSConfig{
		BaseURL: "https://translate.google.com",
		Timeout: 30 * time.Second,
	}
}

// DefaultOfflineConfig 返回离线兜底应答默认配置
func DefaultOfflineConfig() OfflineConfig {
	return OfflineConfig{
		Acknowledgment: "I heard you, little friend!",
	}
}
