package domain

import (
	"context"
	"fmt"
	"time"
)

// MessageRole represents the author of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// messageTTL is how long the store keeps a message before expiry.
const messageTTL = 90 * 24 * time.Hour

// Message is one turn in a conversation. Immutable once written.
type Message struct {
	UserID         string      `bson:"userId" json:"userId"`
	ConversationID string      `bson:"conversationId" json:"conversationId"`
	MessageID      string      `bson:"messageId" json:"messageId"`
	Role           MessageRole `bson:"role" json:"role"`
	Content        string      `bson:"content" json:"content"`
	AgentType      AgentType   `bson:"agentType,omitempty" json:"agentType,omitempty"`
	Timestamp      time.Time   `bson:"timestamp" json:"timestamp"`
	ExpiresAt      time.Time   `bson:"expiresAt" json:"-"`
}

// NewMessage builds a message with a time-ordered, role-suffixed ID.
func NewMessage(userID, conversationID string, role MessageRole, content string, agent AgentType, at time.Time) *Message {
	return &Message{
		UserID:         userID,
		ConversationID: conversationID,
		MessageID:      fmt.Sprintf("%d_%s", at.UnixMilli(), role),
		Role:           role,
		Content:        content,
		AgentType:      agent,
		Timestamp:      at,
		ExpiresAt:      at.Add(messageTTL),
	}
}

// MessageRepository defines append-only message storage.
type MessageRepository interface {
	Append(ctx context.Context, message *Message) error
	// ListByConversation returns up to limit messages in ascending
	// timestamp order. When more exist, the oldest are dropped.
	ListByConversation(ctx context.Context, userID, conversationID string, limit int) ([]Message, error)
	// Recent returns up to n messages in descending timestamp order.
	Recent(ctx context.Context, userID, conversationID string, n int) ([]Message, error)
}
