package handlers

import (
	"net/http"

	"github.com/nourhashem/teddyd/api"
	"github.com/nourhashem/teddyd/children"
	"github.com/nourhashem/teddyd/speech"
	"github.com/nourhashem/teddyd/story"
	"github.com/nourhashem/teddyd/types"
	"go.uber.org/zap"
)

// =============================================================================
// 📖 睡前故事 Handler
// =============================================================================

// StoryHandler 睡前故事生成处理器
type StoryHandler struct {
	generator *story.Generator
	store     *children.Store
	router    *speech.Router
	logger    *zap.Logger
}

// NewStoryHandler 创建故事处理器。store 和 router 可为 nil：
// store 缺失时禁用 child_id 档案查询, router 缺失时禁用语音合成。
func NewStoryHandler(generator *story.Generator, store *children.Store, router *speech.Router, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		generator: generator,
		store:     store,
		router:    router,
		logger:    logger,
	}
}

// HandleGenerate POST /api/v1/stories
func (h *StoryHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.StoryRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	name := req.ChildName
	age := req.Age
	language := req.Language

	// child_id 提供时, 名字、年龄和语言取自档案
	if req.ChildID != "" {
		if h.store == nil {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "child lookup is not enabled", h.logger)
			return
		}
		child, err := h.store.GetChild(r.Context(), req.ChildID)
		if err != nil {
			WriteDomainError(w, err, h.logger)
			return
		}
		name = child.Name
		age = child.Age
		if language == "" {
			language = child.Language
		}
	}

	st, err := h.generator.Generate(story.Request{
		ChildName: name,
		Age:       age,
		Theme:     story.Theme(req.Theme),
	})
	if err != nil {
		WriteDomainError(w, err, h.logger)
		return
	}

	resp := api.StoryResponse{
		Title: st.Title,
		Text:  st.Text,
		Theme: string(st.Theme),
		Tone:  string(st.Tone),
	}

	if req.Synthesize {
		if h.router == nil {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "speech synthesis is not enabled", h.logger)
			return
		}
		result, err := h.router.Synthesize(r.Context(), &speech.Request{
			Text:     st.Text,
			Tone:     st.Tone,
			Language: language,
		})
		if err != nil {
			WriteDomainError(w, err, h.logger)
			return
		}
		resp.Audio = result.Audio
		resp.Format = result.Format
		resp.Provider = result.Provider
	}

	h.logger.Info("story generated",
		zap.String("theme", string(st.Theme)),
		zap.Bool("synthesized", len(resp.Audio) > 0),
	)

	WriteSuccess(w, resp)
}

// HandleThemes GET /api/v1/stories/themes
func (h *StoryHandler) HandleThemes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	WriteSuccess(w, map[string]interface{}{"themes": story.Themes()})
}
