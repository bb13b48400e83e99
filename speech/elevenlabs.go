package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ElevenLabsProvider使用ElevenLabs API执行合成.
type ElevenLabsProvider struct {
	cfg    ElevenLabsConfig
	client *http.Client
}

// NewElevenLabsProvider 创建新的 ElevenLabs TTS 供应商.
func NewElevenLabsProvider(cfg ElevenLabsConfig) *ElevenLabsProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if cfg.Model == "" {
		cfg.Model = "eleven_multilingual_v2"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &ElevenLabsProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
}

type elevenLabsTTSRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

// Execute 将文本合成为语音.
func (p *ElevenLabsProvider) Execute(ctx context.Context, req *Request) (*Result, error) {
	if req.Operation != OpSynthesis {
		return nil, fmt.Errorf("elevenlabs: unsupported operation %q", req.Operation)
	}
	if req.Text == "" {
		return nil, fmt.Errorf("elevenlabs: text is required")
	}

	voiceID := p.cfg.VoiceID
	if voiceID == "" {
		voiceID = "21m00Tcm4TlvDq8ikWAM" // Rachel - default voice
	}

	settings := toneSettings(req.Tone)
	body := elevenLabsTTSRequest{
		Text:          req.Text,
		ModelID:       p.cfg.Model,
		VoiceSettings: &settings,
	}

	payload, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=mp3_44100_128",
		strings.TrimRight(p.cfg.BaseURL, "/"), voiceID)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs: status=%d body=%s", resp.StatusCode, string(errBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}

	return &Result{
		Provider:  p.Name(),
		Operation: OpSynthesis,
		Audio:     audio,
		Format:    "mp3",
		CreatedAt: time.Now(),
	}, nil
}

// toneSettings 将情感映射为 ElevenLabs 声音参数.
func toneSettings(tone Tone) elevenLabsVoiceSettings {
	switch tone {
	case ToneHappy:
		return elevenLabsVoiceSettings{Stability: 0.7, SimilarityBoost: 0.8, Style: 0.6}
	case ToneSad:
		return elevenLabsVoiceSettings{Stability: 0.4, SimilarityBoost: 0.7, Style: 0.3}
	case ToneExcited:
		return elevenLabsVoiceSettings{Stability: 0.8, SimilarityBoost: 0.9, Style: 0.8}
	case ToneCalm:
		return elevenLabsVoiceSettings{Stability: 0.3, SimilarityBoost: 0.6, Style: 0.2}
	default:
		return elevenLabsVoiceSettings{Stability: 0.5, SimilarityBoost: 0.75, Style: 0.5}
	}
}
