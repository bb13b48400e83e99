package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nourhashem/teddyd/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 AdminHandler 测试
// =============================================================================

func TestAdminHandler_Status(t *testing.T) {
	router := newSpeechRouter(t, &echoProvider{name: "whisper", text: "hi"})
	h := NewAdminHandler(router, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/admin/status", nil)
	h.HandleStatus(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var out speech.Status
	decodeResponse(t, w.Body, &out)
	require.Len(t, out.Providers, 1)
	assert.Equal(t, "whisper", out.Providers[0].Name)
}

func TestAdminHandler_ResetBreaker(t *testing.T) {
	provider := &echoProvider{name: "whisper", text: "hi"}
	router := newSpeechRouter(t, provider)
	h := NewAdminHandler(router, zap.NewNop())

	// 熔断器在首次调用时才创建, 先跑一次请求
	_, err := router.Transcribe(t.Context(), &speech.Request{Audio: []byte("audio")})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/admin/providers/whisper/reset", nil)
	h.HandleResetBreaker(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminHandler_ResetBreaker_UnknownProvider(t *testing.T) {
	router := newSpeechRouter(t)
	h := NewAdminHandler(router, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/admin/providers/ghost/reset", nil)
	h.HandleResetBreaker(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminHandler_Availability(t *testing.T) {
	router := newSpeechRouter(t, &echoProvider{name: "whisper", text: "hi"})
	h := NewAdminHandler(router, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/api/v1/admin/providers/whisper/availability",
		bytes.NewReader([]byte(`{"available":false}`)))
	r.Header.Set("Content-Type", "application/json")
	h.HandleAvailability(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	// 下线后请求应打到 503
	_, err := router.Transcribe(t.Context(), &speech.Request{Audio: []byte("audio")})
	assert.ErrorIs(t, err, speech.ErrNoProviderAvailable)
}

func TestAdminHandler_Availability_UnknownProvider(t *testing.T) {
	router := newSpeechRouter(t)
	h := NewAdminHandler(router, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/api/v1/admin/providers/ghost/availability",
		strings.NewReader(`{"available":true}`))
	r.Header.Set("Content-Type", "application/json")
	h.HandleAvailability(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminHandler_MethodNotAllowed(t *testing.T) {
	router := newSpeechRouter(t)
	h := NewAdminHandler(router, zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/admin/status", nil)
	h.HandleStatus(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
