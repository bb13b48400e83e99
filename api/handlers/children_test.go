package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nourhashem/teddyd/children"
	"github.com/nourhashem/teddyd/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 ChildHandler 测试
// =============================================================================

func newChildHandler(t *testing.T) (*ChildHandler, *children.Store) {
	t.Helper()
	store, err := children.Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	return NewChildHandler(store, zap.NewNop()), store
}

func createChildViaAPI(t *testing.T, h *ChildHandler, body string) children.Child {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/children", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	h.HandleCreate(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	var out children.Child
	decodeResponse(t, w.Body, &out)
	return out
}

func TestChildHandler_CreateAndGet(t *testing.T) {
	h, _ := newChildHandler(t)

	created := createChildViaAPI(t, h, `{"name":"Lina","age":5,"language":"ar","device_id":"teddy-001"}`)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Lina", created.Name)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/children/"+created.ID, nil)
	h.HandleGet(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got children.Child
	decodeResponse(t, w.Body, &got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "ar", got.Language)
}

func TestChildHandler_Create_RequiresName(t *testing.T) {
	h, _ := newChildHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/children", strings.NewReader(`{"age":5}`))
	r.Header.Set("Content-Type", "application/json")

	h.HandleCreate(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChildHandler_Get_NotFound(t *testing.T) {
	h, _ := newChildHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/children/no-such-child", nil)
	h.HandleGet(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChildHandler_Update(t *testing.T) {
	h, _ := newChildHandler(t)
	created := createChildViaAPI(t, h, `{"name":"Lina","age":5}`)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/api/v1/children/"+created.ID,
		strings.NewReader(`{"name":"Lina","age":6}`))
	r.Header.Set("Content-Type", "application/json")

	h.HandleUpdate(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var got children.Child
	decodeResponse(t, w.Body, &got)
	assert.Equal(t, 6, got.Age)
}

func TestChildHandler_Delete(t *testing.T) {
	h, store := newChildHandler(t)
	created := createChildViaAPI(t, h, `{"name":"Sami"}`)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/v1/children/"+created.ID, nil)
	h.HandleDelete(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	_, err := store.GetChild(context.Background(), created.ID)
	assert.Error(t, err)
}

func TestChildHandler_List(t *testing.T) {
	h, _ := newChildHandler(t)
	createChildViaAPI(t, h, `{"name":"Lina"}`)
	createChildViaAPI(t, h, `{"name":"Sami"}`)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/children", nil)
	h.HandleList(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Children []children.Child `json:"children"`
		Count    int              `json:"count"`
	}
	decodeResponse(t, w.Body, &out)
	assert.Equal(t, 2, out.Count)
}

func TestChildHandler_History(t *testing.T) {
	h, store := newChildHandler(t)
	created := createChildViaAPI(t, h, `{"name":"Lina"}`)

	// 写入一条已结束的会话记录
	ended := time.Now()
	require.NoError(t, store.PersistSession(context.Background(), &session.Session{
		ID:             "sess-1",
		SubjectID:      created.ID,
		Kind:           session.KindConversation,
		StartedAt:      ended.Add(-2 * time.Minute),
		EndedAt:        &ended,
		RecordingCount: 3,
		TotalDuration:  40 * time.Second,
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/children/"+created.ID+"/sessions", nil)
	h.HandleHistory(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		ChildID  string                   `json:"child_id"`
		Sessions []children.SessionRecord `json:"sessions"`
		Count    int                      `json:"count"`
	}
	decodeResponse(t, w.Body, &out)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "sess-1", out.Sessions[0].SessionID)
}

func TestChildHandler_History_UnknownChild(t *testing.T) {
	h, _ := newChildHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/children/ghost/sessions", nil)
	h.HandleHistory(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChildHandler_History_InvalidLimit(t *testing.T) {
	h, _ := newChildHandler(t)
	created := createChildViaAPI(t, h, `{"name":"Lina"}`)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/children/"+created.ID+"/sessions?limit=bogus", nil)
	h.HandleHistory(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
