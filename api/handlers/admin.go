package handlers

import (
	"net/http"
	"strings"

	"github.com/nourhashem/teddyd/api"
	"github.com/nourhashem/teddyd/speech"
	"github.com/nourhashem/teddyd/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🔧 管理接口 Handler
// =============================================================================

// AdminHandler 路由层管理处理器：状态查询、熔断器复位、提供方开关
type AdminHandler struct {
	router *speech.Router
	logger *zap.Logger
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(router *speech.Router, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{router: router, logger: logger}
}

// extractProviderName 从请求中提取提供方名称（Go 1.22+ PathValue 优先，回退到路径解析）
func extractProviderName(r *http.Request) (string, bool) {
	name := r.PathValue("name")
	if name == "" {
		// 回退：从路径手动解析
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 5 {
			return "", false
		}
		name = parts[4]
	}
	if name == "" {
		return "", false
	}
	return name, true
}

// HandleStatus GET /api/v1/admin/status
func (h *AdminHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	WriteSuccess(w, h.router.Status())
}

// HandleResetBreaker POST /api/v1/admin/providers/{name}/reset
func (h *AdminHandler) HandleResetBreaker(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	name, ok := extractProviderName(r)
	if !ok {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid provider name", h.logger)
		return
	}

	if err := h.router.ResetBreaker(name); err != nil {
		WriteError(w, types.NewError(types.ErrInvalidRequest, err.Error()).WithHTTPStatus(http.StatusNotFound), h.logger)
		return
	}

	h.logger.Info("circuit breaker reset", zap.String("provider", name))
	WriteSuccess(w, map[string]string{"provider": name, "status": "reset"})
}

// HandleAvailability PUT /api/v1/admin/providers/{name}/availability
func (h *AdminHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	name, ok := extractProviderName(r)
	if !ok {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid provider name", h.logger)
		return
	}

	var req api.AvailabilityRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if !h.router.SetAvailability(name, req.Available) {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrProviderUnavailable, "unknown provider", h.logger)
		return
	}

	h.logger.Info("provider availability updated",
		zap.String("provider", name),
		zap.Bool("available", req.Available),
	)

	WriteSuccess(w, map[string]interface{}{
		"provider":  name,
		"available": req.Available,
	})
}
