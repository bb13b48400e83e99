package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nourhashem/teddyd/api"
	"github.com/nourhashem/teddyd/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 SessionHandler 测试
// =============================================================================

func newSessionHandler(t *testing.T) (*SessionHandler, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(session.DefaultConfig(), nil, zap.NewNop())
	return NewSessionHandler(mgr, zap.NewNop()), mgr
}

func startSessionViaAPI(t *testing.T, h *SessionHandler, childID string) api.SessionResponse {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/sessions",
		strings.NewReader(`{"child_id":"`+childID+`"}`))
	r.Header.Set("Content-Type", "application/json")

	h.HandleStart(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	var out api.SessionResponse
	decodeResponse(t, w.Body, &out)
	return out
}

func TestSessionHandler_StartAndGet(t *testing.T) {
	h, _ := newSessionHandler(t)

	created := startSessionViaAPI(t, h, "child-1")
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "child-1", created.ChildID)
	assert.Equal(t, "conversation", created.Kind)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+created.ID, nil)
	h.HandleGet(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got api.SessionResponse
	decodeResponse(t, w.Body, &got)
	assert.Equal(t, created.ID, got.ID)
}

func TestSessionHandler_Start_RequiresChildID(t *testing.T) {
	h, _ := newSessionHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "application/json")

	h.HandleStart(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Start_RejectsUnknownKind(t *testing.T) {
	h, _ := newSessionHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/sessions",
		strings.NewReader(`{"child_id":"c1","kind":"karaoke"}`))
	r.Header.Set("Content-Type", "application/json")

	h.HandleStart(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Start_ExplicitKind(t *testing.T) {
	h, mgr := newSessionHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/sessions",
		strings.NewReader(`{"child_id":"c1","kind":"story"}`))
	r.Header.Set("Content-Type", "application/json")

	h.HandleStart(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	var out api.SessionResponse
	decodeResponse(t, w.Body, &out)
	assert.Equal(t, "story", out.Kind)

	s, found := mgr.Get(out.ID)
	require.True(t, found)
	assert.Equal(t, session.KindStory, s.Kind)
}

func TestSessionHandler_End(t *testing.T) {
	h, mgr := newSessionHandler(t)
	created := startSessionViaAPI(t, h, "child-1")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+created.ID, nil)
	h.HandleEnd(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, mgr.ActiveCount())

	// 重复结束返回 404
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+created.ID, nil)
	h.HandleEnd(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_Get_NotFound(t *testing.T) {
	h, _ := newSessionHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nonexistent", nil)
	h.HandleGet(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_List(t *testing.T) {
	h, _ := newSessionHandler(t)
	startSessionViaAPI(t, h, "child-1")
	startSessionViaAPI(t, h, "child-2")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	h.HandleList(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Sessions []api.SessionResponse `json:"sessions"`
		Count    int                   `json:"count"`
	}
	decodeResponse(t, w.Body, &out)
	assert.Equal(t, 2, out.Count)
	assert.Len(t, out.Sessions, 2)
}

func TestSessionHandler_MethodNotAllowed(t *testing.T) {
	h, _ := newSessionHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/api/v1/sessions", nil)
	h.HandleStart(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
