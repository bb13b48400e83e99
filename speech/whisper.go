package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// WhisperProvider使用OpenAI Whisper API执行转写.
type WhisperProvider struct {
	cfg    WhisperConfig
	client *http.Client
}

// NewWhisperProvider 创建新的 Whisper 供应商.
func NewWhisperProvider(cfg WhisperConfig) *WhisperProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &WhisperProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *WhisperProvider) Name() string { return "whisper" }

type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Execute 将录音转写为文本.
func (p *WhisperProvider) Execute(ctx context.Context, req *Request) (*Result, error) {
	if req.Operation != OpTranscription {
		return nil, fmt.Errorf("whisper: unsupported operation %q", req.Operation)
	}
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("whisper: audio payload is required")
	}

	// 构建多部分表单
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.mp3")
	if err != nil {
		return nil, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("whisper: write audio: %w", err)
	}

	_ = writer.WriteField("model", p.cfg.Model)
	if req.Language != "" {
		_ = writer.WriteField("language", req.Language)
	}
	_ = writer.WriteField("response_format", "json")
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/audio/transcriptions",
		&buf)
	if err != nil {
		return nil, fmt.Errorf("whisper: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whisper: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("whisper: status=%d body=%s", resp.StatusCode, string(errBody))
	}

	var wResp whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&wResp); err != nil {
		return nil, fmt.Errorf("whisper: decode response: %w", err)
	}

	return &Result{
		Provider:  p.Name(),
		Operation: OpTranscription,
		Text:      wResp.Text,
		CreatedAt: time.Now(),
	}, nil
}
