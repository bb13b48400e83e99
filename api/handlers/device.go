package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/nourhashem/teddyd/children"
	"github.com/nourhashem/teddyd/session"
	"github.com/nourhashem/teddyd/speech"
	"github.com/nourhashem/teddyd/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🧸 玩具设备 WebSocket 网关
// =============================================================================

// DeviceMessage 设备下行消息（JSON 文本帧）。
// 二进制帧始终是合成音频, 紧跟在 type=audio 的文本帧之后。
type DeviceMessage struct {
	Type       string  `json:"type"` // "session", "transcript", "audio", "error"
	SessionID  string  `json:"session_id,omitempty"`
	Text       string  `json:"text,omitempty"`
	Provider   string  `json:"provider,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Format     string  `json:"format,omitempty"`
	Cached     bool    `json:"cached,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// deviceCommand 设备上行文本命令
type deviceCommand struct {
	Type     string `json:"type"` // "speak"
	Text     string `json:"text,omitempty"`
	Tone     string `json:"tone,omitempty"`
	Language string `json:"language,omitempty"`
}

// DeviceHandler 玩具设备长连接处理器。
// 上行二进制帧为录音音频（转写后回发文本）, 上行文本帧为 JSON 命令。
type DeviceHandler struct {
	router   *speech.Router
	sessions *session.Manager
	store    *children.Store
	logger   *zap.Logger
}

// NewDeviceHandler 创建设备网关处理器。store 可为 nil, 此时跳过档案绑定。
func NewDeviceHandler(router *speech.Router, sessions *session.Manager, store *children.Store, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		router:   router,
		sessions: sessions,
		store:    store,
		logger:   logger,
	}
}

// HandleConnect GET /api/v1/device/connect?device_id=...
func (h *DeviceHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "device_id is required", h.logger)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection dropped")

	// 设备通过 device_id 绑定儿童档案。未绑定的设备用 device_id 作会话主体。
	subjectID := deviceID
	language := ""
	if h.store != nil {
		if child, err := h.store.GetChildByDevice(r.Context(), deviceID); err == nil {
			subjectID = child.ID
			language = child.Language
		}
	}

	s := h.sessions.Start(subjectID, session.KindConversation)
	defer h.sessions.End(s.ID)

	h.logger.Info("device connected",
		zap.String("device_id", deviceID),
		zap.String("session_id", s.ID),
	)

	dc := &deviceConn{conn: conn}
	_ = dc.writeJSON(r.Context(), DeviceMessage{Type: "session", SessionID: s.ID})

	for {
		msgType, data, err := conn.Read(r.Context())
		if err != nil {
			h.logger.Info("device disconnected",
				zap.String("device_id", deviceID),
				zap.String("session_id", s.ID),
				zap.Error(err),
			)
			conn.Close(websocket.StatusNormalClosure, "bye")
			return
		}

		switch msgType {
		case websocket.MessageBinary:
			h.handleAudio(r.Context(), dc, s.ID, language, data)
		case websocket.MessageText:
			h.handleCommand(r.Context(), dc, s.ID, language, data)
		}
	}
}

// handleAudio 转写录音并回发识别文本
func (h *DeviceHandler) handleAudio(ctx context.Context, dc *deviceConn, sessionID, language string, audio []byte) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := h.router.Transcribe(ctx, &speech.Request{
		Audio:     audio,
		Language:  language,
		SessionID: sessionID,
	})
	if err != nil {
		_ = dc.writeJSON(ctx, DeviceMessage{Type: "error", SessionID: sessionID, Error: err.Error()})
		return
	}

	_ = dc.writeJSON(ctx, DeviceMessage{
		Type:       "transcript",
		SessionID:  sessionID,
		Text:       result.Text,
		Provider:   result.Provider,
		Confidence: result.Confidence,
		Cached:     result.Cached,
	})
}

// handleCommand 处理上行 JSON 命令, 目前仅支持 speak（文本合成下发）
func (h *DeviceHandler) handleCommand(ctx context.Context, dc *deviceConn, sessionID, language string, data []byte) {
	var cmd deviceCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		_ = dc.writeJSON(ctx, DeviceMessage{Type: "error", SessionID: sessionID, Error: "invalid command"})
		return
	}

	if cmd.Type != "speak" {
		_ = dc.writeJSON(ctx, DeviceMessage{Type: "error", SessionID: sessionID, Error: "unknown command type"})
		return
	}

	if cmd.Language == "" {
		cmd.Language = language
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := h.router.Synthesize(ctx, &speech.Request{
		Text:      cmd.Text,
		Tone:      speech.Tone(cmd.Tone),
		Language:  cmd.Language,
		SessionID: sessionID,
	})
	if err != nil {
		_ = dc.writeJSON(ctx, DeviceMessage{Type: "error", SessionID: sessionID, Error: err.Error()})
		return
	}

	// 先发元数据文本帧, 再发音频二进制帧
	if err := dc.writeJSON(ctx, DeviceMessage{
		Type:      "audio",
		SessionID: sessionID,
		Provider:  result.Provider,
		Format:    result.Format,
		Cached:    result.Cached,
	}); err != nil {
		return
	}
	_ = dc.writeBinary(ctx, result.Audio)
}

// deviceConn 串行化 WebSocket 写操作, 因为底层连接不支持并发写
type deviceConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *deviceConn) writeJSON(ctx context.Context, msg DeviceMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *deviceConn) writeBinary(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageBinary, data)
}
