package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Manager owns all mutation of session records. Concurrent turns on one
// session race on read-modify-write; last writer wins by design.
type Manager struct {
	repo domain.SessionRepository
}

// NewManager creates a session manager
func NewManager(repo domain.SessionRepository) *Manager {
	return &Manager{repo: repo}
}

// GetOrCreate resolves the session for (userID, conversationID), creating
// one with the default persona on first contact. Concurrent creators may
// race; the caller tolerates a freshly created duplicate being overwritten.
func (m *Manager) GetOrCreate(ctx context.Context, userID, conversationID string) (*domain.Session, error) {
	session, err := m.repo.FindByConversation(ctx, userID, conversationID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}

	now := time.Now()
	session = &domain.Session{
		SessionID:      fmt.Sprintf("session_%s", uuid.NewString()),
		UserID:         userID,
		ConversationID: conversationID,
		CurrentAgent:   domain.AgentDefault,
		CreatedAt:      now,
		LastActivityAt: now,
		State:          domain.NewSessionState(),
	}
	if err := m.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.SessionID).
		Str("user_id", userID).
		Str("conversation_id", conversationID).
		Msg("session created")
	return session, nil
}

// Get loads a session by ID.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.repo.Get(ctx, sessionID)
}

// FindByConversation loads the session owning (userID, conversationID)
// without creating one.
func (m *Manager) FindByConversation(ctx context.Context, userID, conversationID string) (*domain.Session, error) {
	return m.repo.FindByConversation(ctx, userID, conversationID)
}

// SetCurrentAgent updates the active persona and activity timestamp.
// Unknown personas are normalized to the default. Idempotent.
func (m *Manager) SetCurrentAgent(ctx context.Context, sessionID string, agent domain.AgentType) error {
	if !agent.Valid() {
		agent = domain.AgentDefault
	}
	return m.repo.Touch(ctx, sessionID, agent, time.Now())
}

// ApplyStateUpdate merges the given updates into the session's state via
// read-modify-write. Fails with ErrSessionNotFound when the session does
// not exist; store failures surface as ErrPersistence and are safe to
// retry since the merge is idempotent.
func (m *Manager) ApplyStateUpdate(ctx context.Context, sessionID string, updates ...StateUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	session, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	Reduce(&session.State, updates...)

	return m.repo.Update(ctx, session)
}
