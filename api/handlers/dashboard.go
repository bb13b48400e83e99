package handlers

import (
	"net/http"

	"github.com/nourhashem/teddyd/children"
	"github.com/nourhashem/teddyd/types"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 家长仪表盘 Handler
// =============================================================================

// DashboardHandler 家长仪表盘处理器
type DashboardHandler struct {
	store  *children.Store
	logger *zap.Logger
}

// NewDashboardHandler 创建仪表盘处理器
func NewDashboardHandler(store *children.Store, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{store: store, logger: logger}
}

// HandleSummary GET /api/v1/dashboard
func (h *DashboardHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	summaries, err := h.store.DashboardSummary(r.Context())
	if err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"children": summaries,
		"count":    len(summaries),
	})
}
