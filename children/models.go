package children

import (
	"time"
)

// Child 儿童档案模型
// 一个孩子对应一台玩具设备，语言决定语音识别与合成使用的语言
type Child struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Age       int       `gorm:"not null" json:"age"`
	Language  string    `gorm:"size:8;default:en" json:"language"` // ISO-639-1
	DeviceID  string    `gorm:"size:64;uniqueIndex" json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionRecord 会话历史记录
// 会话结束后由 session.Manager 通过 Persister 接口写入
type SessionRecord struct {
	ID             uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID      string        `gorm:"size:36;uniqueIndex" json:"session_id"`
	ChildID        string        `gorm:"size:36;index" json:"child_id"`
	Kind           string        `gorm:"size:32" json:"kind"`
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        time.Time     `json:"ended_at"`
	RecordingCount int           `json:"recording_count"`
	TotalDuration  time.Duration `json:"total_duration"`
	TimedOut       bool          `json:"timed_out"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ChildSummary 家长仪表盘的按孩子聚合视图
type ChildSummary struct {
	ChildID       string        `json:"child_id"`
	Name          string        `json:"name"`
	SessionCount  int64         `json:"session_count"`
	TotalDuration time.Duration `json:"total_duration"`
	LastSessionAt time.Time     `json:"last_session_at"`
}
