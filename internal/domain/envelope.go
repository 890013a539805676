package domain

import (
	"fmt"
	"time"
)

// AgentEnvelope is the bus payload for inter-agent collaboration.
type AgentEnvelope struct {
	UserID              string            `json:"userId"`
	ConversationID      string            `json:"conversationId"`
	SessionID           string            `json:"sessionId"`
	SourceAgent         AgentType         `json:"sourceAgent"`
	TargetAgent         AgentType         `json:"targetAgent"`
	Message             string            `json:"message"`
	Context             string            `json:"context"`
	ConversationSummary string            `json:"conversationSummary,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	RequiresResponse    bool              `json:"requiresResponse"`
	IsResponse          bool              `json:"isResponse"`
	Timestamp           time.Time         `json:"timestamp"`
}

// Validate rejects envelopes that would start a collaboration loop: a
// response must never itself request a further response.
func (e *AgentEnvelope) Validate() error {
	if e.IsResponse && e.RequiresResponse {
		return fmt.Errorf("response envelope must not require a response")
	}
	if !e.SourceAgent.Valid() || !e.TargetAgent.Valid() {
		return fmt.Errorf("unknown agent in envelope: source=%q target=%q", e.SourceAgent, e.TargetAgent)
	}
	return nil
}

// DedupToken derives the per-send uniqueness token handed to the bus.
func (e *AgentEnvelope) DedupToken() string {
	if e.IsResponse {
		return fmt.Sprintf("%s_%d_response", e.ConversationID, e.Timestamp.UnixMilli())
	}
	return fmt.Sprintf("%s_%d", e.ConversationID, e.Timestamp.UnixMilli())
}

// ResponseEnvelope builds the reply envelope routed back to the originating
// agent. RequiresResponse is forced false to prevent infinite chains.
func ResponseEnvelope(orig *AgentEnvelope, reply, briefing string, at time.Time) *AgentEnvelope {
	return &AgentEnvelope{
		UserID:           orig.UserID,
		ConversationID:   orig.ConversationID,
		SessionID:        orig.SessionID,
		SourceAgent:      orig.TargetAgent,
		TargetAgent:      orig.SourceAgent,
		Message:          reply,
		Context:          briefing,
		Metadata:         map[string]string{"originalMessageContext": orig.Context},
		RequiresResponse: false,
		IsResponse:       true,
		Timestamp:        at,
	}
}
