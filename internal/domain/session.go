package domain

import (
	"context"
	"time"
)

// InteractionType classifies entries in the session interaction log.
type InteractionType string

const (
	InteractionUserDialog    InteractionType = "userDialog"
	InteractionAgentSwitch   InteractionType = "agentSwitch"
	InteractionAgentTransfer InteractionType = "agentTransfer"
)

// MaxInteractions caps the session interaction log; oldest entries are
// evicted first.
const MaxInteractions = 10

// Interaction is one entry in the bounded interaction log.
type Interaction struct {
	Type              InteractionType `bson:"type" json:"type"`
	From              AgentType       `bson:"from,omitempty" json:"from,omitempty"`
	To                AgentType       `bson:"to,omitempty" json:"to,omitempty"`
	AgentType         AgentType       `bson:"agentType,omitempty" json:"agentType,omitempty"`
	UserMessageID     string          `bson:"userMessageId,omitempty" json:"userMessageId,omitempty"`
	ResponseMessageID string          `bson:"responseMessageId,omitempty" json:"responseMessageId,omitempty"`
	Reason            string          `bson:"reason,omitempty" json:"reason,omitempty"`
	Timestamp         time.Time       `bson:"timestamp" json:"timestamp"`
}

// AgentHandoff records one persona hand-off in the unbounded history.
type AgentHandoff struct {
	From      AgentType `bson:"from" json:"from"`
	To        AgentType `bson:"to" json:"to"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// PendingCollaboration is the single outstanding cross-agent consultation.
// A new collaboration request overwrites it; nothing clears it once the
// response is handled.
type PendingCollaboration struct {
	From      AgentType `bson:"from" json:"from"`
	To        AgentType `bson:"to" json:"to"`
	Question  string    `bson:"question" json:"question"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// SessionState is the mutable conversational context owned by the session.
type SessionState struct {
	Topics               []string              `bson:"topics" json:"topics"`
	DetectedEntities     map[string]string     `bson:"detectedEntities" json:"detectedEntities"`
	ConversationSummary  string                `bson:"conversationSummary,omitempty" json:"conversationSummary,omitempty"`
	LastSummaryUpdate    *time.Time            `bson:"lastSummaryUpdate,omitempty" json:"lastSummaryUpdate,omitempty"`
	Interactions         []Interaction         `bson:"interactions" json:"interactions"`
	AgentHistory         []AgentHandoff        `bson:"agentHistory" json:"agentHistory"`
	PendingCollaboration *PendingCollaboration `bson:"pendingCollaboration,omitempty" json:"pendingCollaboration,omitempty"`
}

// NewSessionState returns an empty state with initialized containers.
func NewSessionState() SessionState {
	return SessionState{
		Topics:           []string{},
		DetectedEntities: map[string]string{},
		Interactions:     []Interaction{},
		AgentHistory:     []AgentHandoff{},
	}
}

// Session is the authoritative per-(user, conversation) record.
type Session struct {
	SessionID      string       `bson:"sessionId" json:"sessionId"`
	UserID         string       `bson:"userId" json:"userId"`
	ConversationID string       `bson:"conversationId" json:"conversationId"`
	CurrentAgent   AgentType    `bson:"currentAgent" json:"currentAgent"`
	CreatedAt      time.Time    `bson:"createdAt" json:"createdAt"`
	LastActivityAt time.Time    `bson:"lastActivityAt" json:"lastActivityAt"`
	State          SessionState `bson:"state" json:"state"`
}

// SessionRepository defines the interface for session storage.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	FindByConversation(ctx context.Context, userID, conversationID string) (*Session, error)
	// Update writes the full session record; last writer wins.
	Update(ctx context.Context, session *Session) error
	// Touch updates currentAgent and lastActivityAt only.
	Touch(ctx context.Context, sessionID string, agent AgentType, at time.Time) error
}
