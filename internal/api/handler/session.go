package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aidevlab/aidev-chat/internal/api/middleware"
	"github.com/aidevlab/aidev-chat/internal/api/response"
	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/aidevlab/aidev-chat/internal/session"
	"github.com/go-chi/chi/v5"
)

const defaultHistoryLimit = 20

// SessionHandler exposes read access to session state and history
type SessionHandler struct {
	sessions *session.Manager
	messages domain.MessageRepository
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Manager, messages domain.MessageRepository) *SessionHandler {
	return &SessionHandler{sessions: sessions, messages: messages}
}

// Get returns the session backing a conversation
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	if conversationID == "" {
		response.BadRequest(w, "missing conversation ID")
		return
	}

	sess, err := h.sessions.FindByConversation(r.Context(), userID, conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, sess)
}

// History returns the most recent messages of a conversation in
// chronological order
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	if conversationID == "" {
		response.BadRequest(w, "missing conversation ID")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			response.BadRequest(w, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	messages, err := h.messages.ListByConversation(r.Context(), userID, conversationID, limit)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, map[string]any{
		"conversationId": conversationID,
		"messages":       messages,
	})
}
