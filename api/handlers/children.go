package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/nourhashem/teddyd/api"
	"github.com/nourhashem/teddyd/children"
	"github.com/nourhashem/teddyd/types"
	"go.uber.org/zap"
)

// =============================================================================
// 👧 儿童档案接口 Handler
// =============================================================================

// ChildHandler 儿童档案 CRUD 处理器
type ChildHandler struct {
	store  *children.Store
	logger *zap.Logger
}

// NewChildHandler 创建儿童档案处理器
func NewChildHandler(store *children.Store, logger *zap.Logger) *ChildHandler {
	return &ChildHandler{store: store, logger: logger}
}

// extractChildID 从请求中提取儿童 ID（Go 1.22+ PathValue 优先，回退到路径解析）
func extractChildID(r *http.Request) (string, bool) {
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

// HandleCreate POST /api/v1/children
func (h *ChildHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ChildRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	child := &children.Child{
		Name:     req.Name,
		Age:      req.Age,
		Language: req.Language,
		DeviceID: req.DeviceID,
	}
	if err := h.store.CreateChild(r.Context(), child); err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("child profile created",
		zap.String("child_id", child.ID),
		zap.String("device_id", child.DeviceID),
	)

	WriteJSON(w, http.StatusCreated, Response{Success: true, Data: child})
}

// HandleList GET /api/v1/children
func (h *ChildHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	list, err := h.store.ListChildren(r.Context())
	if err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"children": list,
		"count":    len(list),
	})
}

// HandleGet GET /api/v1/children/{id}
func (h *ChildHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	id, ok := extractChildID(r)
	if !ok {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid child ID", h.logger)
		return
	}

	child, err := h.store.GetChild(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	WriteSuccess(w, child)
}

// HandleUpdate PUT /api/v1/children/{id}
func (h *ChildHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	id, ok := extractChildID(r)
	if !ok {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid child ID", h.logger)
		return
	}

	var req api.ChildRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	child, err := h.store.GetChild(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	if req.Name != "" {
		child.Name = req.Name
	}
	if req.Age > 0 {
		child.Age = req.Age
	}
	if req.Language != "" {
		child.Language = req.Language
	}
	if req.DeviceID != "" {
		child.DeviceID = req.DeviceID
	}

	if err := h.store.UpdateChild(r.Context(), child); err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	WriteSuccess(w, child)
}

// HandleDelete DELETE /api/v1/children/{id}
func (h *ChildHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	id, ok := extractChildID(r)
	if !ok {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid child ID", h.logger)
		return
	}

	if err := h.store.DeleteChild(r.Context(), id); err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("child profile deleted", zap.String("child_id", id))
	WriteSuccess(w, map[string]string{"child_id": id, "status": "deleted"})
}

// HandleHistory GET /api/v1/children/{id}/sessions
func (h *ChildHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	id, ok := extractChildID(r)
	if !ok {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid child ID", h.logger)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid limit", h.logger)
			return
		}
		limit = n
	}

	// 确认档案存在, 不存在时返回 404 而不是空列表
	if _, err := h.store.GetChild(r.Context(), id); err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	records, err := h.store.SessionHistory(r.Context(), id, limit)
	if err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"child_id": id,
		"sessions": records,
		"count":    len(records),
	})
}
