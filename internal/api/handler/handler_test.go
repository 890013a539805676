package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aidevlab/aidev-chat/internal/api/handler"
	"github.com/aidevlab/aidev-chat/internal/api/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, true, response["success"])

	data, ok := response["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
}

// authedRequest builds a request whose context carries an authenticated
// caller, as the auth middleware would.
func authedRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	ctx := context.WithValue(req.Context(), middleware.UserIDKey, "user123")
	return req.WithContext(ctx)
}

func TestChatHandler_Chat_InputValidation(t *testing.T) {
	// The handler rejects these before touching any collaborator.
	h := handler.NewChatHandler(nil)

	t.Run("missing identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString(`{"message":"こんにちは"}`))

		h.Chat(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "/api/v1/chat", nil)
		req.Body = http.NoBody

		h.Chat(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "/api/v1/chat", map[string]string{
			"conversationId": "chat_abc",
		})

		h.Chat(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown agent type", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "/api/v1/chat", map[string]string{
			"message":   "こんにちは",
			"agentType": "billing",
		})

		h.Chat(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
