package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AzureProvider使用Azure语音服务执行转写与合成.
// 同一订阅密钥覆盖两种操作.
type AzureProvider struct {
	cfg    AzureConfig
	client *http.Client
}

// NewAzureProvider 创建新的 Azure 语音供应商.
func NewAzureProvider(cfg AzureConfig) *AzureProvider {
	if cfg.Region == "" {
		cfg.Region = "westeurope"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &AzureProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *AzureProvider) Name() string { return "azure" }

// Execute 根据请求操作分派到转写或合成.
func (p *AzureProvider) Execute(ctx context.Context, req *Request) (*Result, error) {
	switch req.Operation {
	case OpTranscription:
		return p.transcribe(ctx, req)
	case OpSynthesis:
		return p.synthesize(ctx, req)
	default:
		return nil, fmt.Errorf("azure: unsupported operation %q", req.Operation)
	}
}

type azureSTTResponse struct {
	RecognitionStatus string  `json:"RecognitionStatus"`
	DisplayText       string  `json:"DisplayText"`
	Confidence        float64 `json:"Confidence,omitempty"`
}

func (p *AzureProvider) transcribe(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("azure: audio payload is required")
	}

	endpoint := fmt.Sprintf(
		"https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1?language=%s",
		p.cfg.Region, azureLocale(req.Language),
	)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(req.Audio))
	if err != nil {
		return nil, fmt.Errorf("azure: create request: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate=16000")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("azure: stt request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure: stt status=%d body=%s", resp.StatusCode, string(errBody))
	}

	var aResp azureSTTResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return nil, fmt.Errorf("azure: decode stt response: %w", err)
	}
	if aResp.RecognitionStatus != "Success" {
		return nil, fmt.Errorf("azure: recognition status %q", aResp.RecognitionStatus)
	}

	return &Result{
		Provider:   p.Name(),
		Operation:  OpTranscription,
		Text:       aResp.DisplayText,
		Confidence: aResp.Confidence,
		CreatedAt:  time.Now(),
	}, nil
}

func (p *AzureProvider) synthesize(ctx context.Context, req *Request) (*Result, error) {
	voice := p.cfg.Voice
	if voice == "" {
		voice = azureVoice(req.Language)
	}

	ssml := buildAzureSSML(req.Text, req.Tone, voice, azureLocale(req.Language))
	endpoint := fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", p.cfg.Region)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBufferString(ssml))
	if err != nil {
		return nil, fmt.Errorf("azure: create request: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("X-Microsoft-OutputFormat", "audio-16khz-32kbitrate-mono-mp3")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("azure: tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure: tts status=%d body=%s", resp.StatusCode, string(errBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("azure: read audio: %w", err)
	}

	return &Result{
		Provider:  p.Name(),
		Operation: OpSynthesis,
		Audio:     audio,
		Format:    "mp3",
		CreatedAt: time.Now(),
	}, nil
}

// azureLocale 将 ISO-639-1 语言码映射为 Azure 区域语言标签.
func azureLocale(language string) string {
	switch language {
	case "ar":
		return "ar-SA"
	case "fr":
		return "fr-FR"
	case "es":
		return "es-ES"
	default:
		return "en-US"
	}
}

// azureVoice 按语言选择童声友好的神经语音.
func azureVoice(language string) string {
	if language == "ar" {
		return "ar-SA-ZariyahNeural"
	}
	return "en-US-JennyNeural"
}

// buildAzureSSML 构建携带情感风格的 SSML.
func buildAzureSSML(text string, tone Tone, voice, locale string) string {
	styles := map[Tone]string{
		ToneHappy:   "cheerful",
		ToneSad:     "sad",
		ToneExcited: "excited",
		ToneCalm:    "calm",
		ToneNeutral: "neutral",
	}
	style, ok := styles[tone]
	if !ok {
		style = "neutral"
	}

	return fmt.Sprintf(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="http://www.w3.org/2001/mstts" xml:lang=%q>`+
		`<voice name=%q><mstts:express-as style=%q styledegree="1.5">%s</mstts:express-as></voice></speak>`,
		locale, voice, style, text)
}
