package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aidevlab/aidev-chat/internal/api/middleware"
	"github.com/aidevlab/aidev-chat/internal/api/response"
	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/aidevlab/aidev-chat/internal/orchestrator"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ChatHandler handles conversational turn endpoints
type ChatHandler struct {
	orch *orchestrator.Orchestrator
}

// NewChatHandler creates a new chat handler
func NewChatHandler(orch *orchestrator.Orchestrator) *ChatHandler {
	return &ChatHandler{orch: orch}
}

// Chat handles one user turn. The caller identity always comes from the
// token, never from the request body.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	req.UserID = userID

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if req.AgentType != "" {
		if _, ok := domain.ParseAgentType(req.AgentType); !ok {
			response.BadRequest(w, "unknown agent type")
			return
		}
	}

	resp, err := h.orch.HandleUserTurn(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			response.BadRequest(w, err.Error())
		case errors.Is(err, domain.ErrSessionNotFound):
			response.NotFound(w, "session not found")
		default:
			response.InternalError(w, err.Error())
		}
		return
	}

	response.OK(w, resp)
}
