package handlers

import (
	"net/http"
	"strings"

	"github.com/nourhashem/teddyd/api"
	"github.com/nourhashem/teddyd/session"
	"github.com/nourhashem/teddyd/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🧸 会话接口 Handler
// =============================================================================

// SessionHandler 会话生命周期处理器
type SessionHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(sessions *session.Manager, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// extractSessionID 从请求中提取会话 ID（Go 1.22+ PathValue 优先，回退到路径解析）
func extractSessionID(r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		// 回退：从路径手动解析
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 4 {
			return "", false
		}
		id = parts[3]
	}
	if id == "" {
		return "", false
	}
	return id, true
}

// HandleStart POST /api/v1/sessions
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.StartSessionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.ChildID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "child_id is required", h.logger)
		return
	}

	kind := session.Kind(req.Kind)
	switch kind {
	case "":
		kind = session.KindConversation
	case session.KindConversation, session.KindStory, session.KindPlayback:
	default:
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "unknown session kind", h.logger)
		return
	}

	s := h.sessions.Start(req.ChildID, kind)

	h.logger.Info("session started",
		zap.String("session_id", s.ID),
		zap.String("child_id", req.ChildID),
		zap.String("kind", string(kind)),
	)

	WriteJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    api.NewSessionResponse(s),
	})
}

// HandleGet GET /api/v1/sessions/{id}
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	id, ok := extractSessionID(r)
	if !ok {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid session ID", h.logger)
		return
	}

	s, found := h.sessions.Get(id)
	if !found {
		WriteError(w, types.NewError(types.ErrSessionNotFound, "session not found or already ended"), h.logger)
		return
	}

	WriteSuccess(w, api.NewSessionResponse(s))
}

// HandleEnd DELETE /api/v1/sessions/{id}
func (h *SessionHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	id, ok := extractSessionID(r)
	if !ok {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid session ID", h.logger)
		return
	}

	if !h.sessions.End(id) {
		WriteError(w, types.NewError(types.ErrSessionNotFound, "session not found or already ended"), h.logger)
		return
	}

	h.logger.Info("session ended", zap.String("session_id", id))
	WriteSuccess(w, map[string]string{"session_id": id, "status": "ended"})
}

// HandleList GET /api/v1/sessions
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	active := h.sessions.Active()
	out := make([]api.SessionResponse, 0, len(active))
	for _, s := range active {
		out = append(out, api.NewSessionResponse(s))
	}

	WriteSuccess(w, map[string]interface{}{
		"sessions": out,
		"count":    len(out),
	})
}
