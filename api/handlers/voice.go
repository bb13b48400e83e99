package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/nourhashem/teddyd/api"
	"github.com/nourhashem/teddyd/speech"
	"github.com/nourhashem/teddyd/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🎤 语音接口 Handler
// =============================================================================

// MaxAudioBytes 单次上传音频大小上限（10 MiB, 玩具端录音远小于此值）
const MaxAudioBytes = 10 << 20

// VoiceHandler 语音转写与合成处理器
type VoiceHandler struct {
	router *speech.Router
	logger *zap.Logger
}

// NewVoiceHandler 创建语音处理器
func NewVoiceHandler(router *speech.Router, logger *zap.Logger) *VoiceHandler {
	return &VoiceHandler{
		router: router,
		logger: logger,
	}
}

// HandleTranscribe 处理语音转写请求
// @Summary 语音转写
// @Description 将上传的音频识别为文本, 请求体为原始音频字节
// @Tags 语音
// @Accept octet-stream
// @Produce json
// @Param language query string false "语言代码（ISO-639-1）"
// @Param session_id query string false "关联的会话 ID"
// @Success 200 {object} api.TranscribeResponse "转写结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 503 {object} Response "所有提供方不可用"
// @Security ApiKeyAuth
// @Router /v1/voice/transcribe [post]
func (h *VoiceHandler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	audio, err := io.ReadAll(io.LimitReader(r.Body, MaxAudioBytes+1))
	if err != nil {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "failed to read audio body").WithCause(err), h.logger)
		return
	}
	if len(audio) > MaxAudioBytes {
		WriteErrorMessage(w, http.StatusRequestEntityTooLarge, types.ErrInvalidRequest, "audio payload too large", h.logger)
		return
	}

	req := &speech.Request{
		Audio:     audio,
		Language:  r.URL.Query().Get("language"),
		SessionID: r.URL.Query().Get("session_id"),
	}

	start := time.Now()
	result, err := h.router.Transcribe(r.Context(), req)
	if err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("transcription served",
		zap.String("provider", result.Provider),
		zap.Bool("cached", result.Cached),
		zap.Int("audio_bytes", len(audio)),
		zap.Duration("duration", time.Since(start)),
	)

	WriteSuccess(w, api.TranscribeResponse{
		Text:       result.Text,
		Provider:   result.Provider,
		Confidence: result.Confidence,
		Language:   req.Language,
		Cached:     result.Cached,
	})
}

// HandleSynthesize 处理语音合成请求
// @Summary 语音合成
// @Description 将回复文本合成为语音
// @Tags 语音
// @Accept json
// @Produce json
// @Param request body api.SynthesizeRequest true "合成请求"
// @Success 200 {object} api.SynthesizeResponse "合成结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 503 {object} Response "所有提供方不可用"
// @Security ApiKeyAuth
// @Router /v1/voice/synthesize [post]
func (h *VoiceHandler) HandleSynthesize(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.SynthesizeRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	speechReq := &speech.Request{
		Text:      req.Text,
		Tone:      speech.Tone(req.Tone),
		Language:  req.Language,
		SessionID: req.SessionID,
	}

	start := time.Now()
	result, err := h.router.Synthesize(r.Context(), speechReq)
	if err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("synthesis served",
		zap.String("provider", result.Provider),
		zap.Bool("cached", result.Cached),
		zap.Int("text_len", len(req.Text)),
		zap.Duration("duration", time.Since(start)),
	)

	WriteSuccess(w, api.SynthesizeResponse{
		Audio:    result.Audio,
		Format:   result.Format,
		Provider: result.Provider,
		Cached:   result.Cached,
	})
}
