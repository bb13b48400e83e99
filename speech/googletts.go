package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoogleTTSProvider是不需要凭据的最后一级合成后备.
// 它调用 Google 翻译的朗读端点，不支持情感风格.
type GoogleTTSProvider struct {
	cfg    GoogleTTSConfig
	client *http.Client
}

// NewGoogleTTSProvider 创建新的 Google TTS 后备供应商.
func NewGoogleTTSProvider(cfg GoogleTTSConfig) *GoogleTTSProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://translate.google.com"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &GoogleTTSProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *GoogleTTSProvider) Name() string { return "gtts" }

// Execute 将文本合成为语音（忽略情感参数）.
func (p *GoogleTTSProvider) Execute(ctx context.Context, req *Request) (*Result, error) {
	if req.Operation != OpSynthesis {
		return nil, fmt.Errorf("gtts: unsupported operation %q", req.Operation)
	}
	if req.Text == "" {
		return nil, fmt.Errorf("gtts: text is required")
	}

	lang := req.Language
	if lang == "" {
		lang = "en"
	}

	endpoint := fmt.Sprintf("%s/translate_tts?ie=UTF-8&client=tw-ob&tl=%s&q=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"),
		url.QueryEscape(lang),
		url.QueryEscape(req.Text),
	)

	httpReq, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("gtts: create request: %w", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gtts: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gtts: status=%d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gtts: read audio: %w", err)
	}

	return &Result{
		Provider:  p.Name(),
		Operation: OpSynthesis,
		Audio:     audio,
		Format:    "mp3",
		CreatedAt: time.Now(),
	}, nil
}
