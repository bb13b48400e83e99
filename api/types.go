package api

import (
	"time"

	"github.com/nourhashem/teddyd/session"
)

// =============================================================================
// 语音接口类型
// =============================================================================

// TranscribeResponse 语音转写响应。
// @Description 语音转写响应结构
type TranscribeResponse struct {
	// 识别出的文本
	Text string `json:"text"`
	// 处理请求的提供方
	Provider string `json:"provider" example:"whisper"`
	// 识别置信度（0-1, 提供方可选）
	Confidence float64 `json:"confidence,omitempty" example:"0.95"`
	// 语言代码（ISO-639-1）
	Language string `json:"language,omitempty" example:"en"`
	// 是否命中缓存
	Cached bool `json:"cached"`
}

// SynthesizeRequest 语音合成请求。
// @Description 语音合成请求结构
type SynthesizeRequest struct {
	// 要合成的文本
	Text string `json:"text" binding:"required"`
	// 情感语气（neutral、happy、sad、excited、calm）
	Tone string `json:"tone,omitempty" example:"calm"`
	// 语言代码（ISO-639-1）
	Language string `json:"language,omitempty" example:"en"`
	// 关联的会话 ID
	SessionID string `json:"session_id,omitempty"`
}

// SynthesizeResponse 语音合成响应。
// @Description 语音合成响应结构, 音频为 base64 编码
type SynthesizeResponse struct {
	// 合成音频（base64）
	Audio []byte `json:"audio"`
	// 音频格式（mp3、wav、pcm）
	Format string `json:"format" example:"mp3"`
	// 处理请求的提供方
	Provider string `json:"provider" example:"elevenlabs"`
	// 是否命中缓存
	Cached bool `json:"cached"`
}

// =============================================================================
// 会话接口类型
// =============================================================================

// StartSessionRequest 开始会话请求。
// @Description 开始会话请求结构
type StartSessionRequest struct {
	// 儿童档案 ID
	ChildID string `json:"child_id" binding:"required"`
	// 会话类型（conversation、story、playback）
	Kind string `json:"kind,omitempty" example:"conversation"`
}

// SessionResponse 会话视图。
// @Description 会话状态结构
type SessionResponse struct {
	ID             string            `json:"id"`
	ChildID        string            `json:"child_id"`
	Kind           string            `json:"kind"`
	StartedAt      time.Time         `json:"started_at"`
	EndedAt        *time.Time        `json:"ended_at,omitempty"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	RecordingCount int               `json:"recording_count"`
	TotalDuration  string            `json:"total_duration"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// NewSessionResponse 将内部会话转换为 API 视图。
func NewSessionResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		ID:             s.ID,
		ChildID:        s.SubjectID,
		Kind:           string(s.Kind),
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
		LastActivityAt: s.LastActivityAt,
		RecordingCount: s.RecordingCount,
		TotalDuration:  s.TotalDuration.String(),
		Metadata:       s.Metadata,
	}
}

// =============================================================================
// 儿童档案接口类型
// =============================================================================

// ChildRequest 创建/更新儿童档案请求。
// @Description 儿童档案请求结构
type ChildRequest struct {
	// 名字
	Name string `json:"name" binding:"required"`
	// 年龄
	Age int `json:"age,omitempty" example:"5"`
	// 偏好语言（ISO-639-1）
	Language string `json:"language,omitempty" example:"en"`
	// 绑定的玩具设备 ID
	DeviceID string `json:"device_id,omitempty"`
}

// =============================================================================
// 故事接口类型
// =============================================================================

// StoryRequest 生成睡前故事请求。
// @Description 故事生成请求结构
type StoryRequest struct {
	// 儿童名字（直接提供, 或通过 child_id 查档案）
	ChildName string `json:"child_name,omitempty"`
	// 儿童档案 ID（提供时名字和年龄取自档案）
	ChildID string `json:"child_id,omitempty"`
	// 年龄
	Age int `json:"age,omitempty" example:"5"`
	// 主题（space、ocean、forest、friendship; 留空随机）
	Theme string `json:"theme,omitempty" example:"space"`
	// 是否同时合成语音
	Synthesize bool `json:"synthesize,omitempty"`
	// 合成语言（synthesize=true 时生效）
	Language string `json:"language,omitempty" example:"en"`
}

// StoryResponse 故事响应。
// @Description 故事响应结构
type StoryResponse struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Theme string `json:"theme"`
	Tone  string `json:"tone"`
	// 合成音频（base64, 仅 synthesize=true 时存在）
	Audio []byte `json:"audio,omitempty"`
	// 音频格式
	Format string `json:"format,omitempty"`
	// 合成提供方
	Provider string `json:"provider,omitempty"`
}

// =============================================================================
// 管理接口类型
// =============================================================================

// AvailabilityRequest 提供方可用性开关请求。
// @Description 可用性开关请求结构
type AvailabilityRequest struct {
	// 是否可用
	Available bool `json:"available"`
}
