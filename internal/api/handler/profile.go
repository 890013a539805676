package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aidevlab/aidev-chat/internal/api/middleware"
	"github.com/aidevlab/aidev-chat/internal/api/response"
	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/aidevlab/aidev-chat/internal/llm"
)

// ProfileHandler handles user preference endpoints
type ProfileHandler struct {
	profiles domain.ProfileRepository
	gateway  *llm.Gateway
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles domain.ProfileRepository, gateway *llm.Gateway) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, gateway: gateway}
}

// Get returns the caller's profile; an empty profile when none is stored
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	profile, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	if profile == nil {
		profile = &domain.UserProfile{UserID: userID}
	}

	response.OK(w, profile)
}

// Update upserts the caller's profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input struct {
		DisplayName       string `json:"displayName"`
		PreferredProvider string `json:"preferredProvider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if input.PreferredProvider != "" && !h.knownProvider(input.PreferredProvider) {
		response.BadRequest(w, "unknown provider: "+input.PreferredProvider)
		return
	}

	now := time.Now()
	existing, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	profile := &domain.UserProfile{
		UserID:            userID,
		DisplayName:       input.DisplayName,
		PreferredProvider: input.PreferredProvider,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if existing != nil {
		profile.CreatedAt = existing.CreatedAt
	}

	if err := h.profiles.Upsert(r.Context(), profile); err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, profile)
}

func (h *ProfileHandler) knownProvider(name string) bool {
	for _, p := range h.gateway.ListProviders() {
		if p == name {
			return true
		}
	}
	return false
}
