package domain

// TurnRequest is one inbound user utterance.
type TurnRequest struct {
	UserID         string `json:"userId" validate:"required"`
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message" validate:"required"`
	AgentType      string `json:"agentType,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
}

// TurnResponse is the reply to a user turn. CurrentAgent is the persona that
// held the conversation before the turn; SuggestedAgent the one effective
// after it (they differ only on a hand-off turn).
type TurnResponse struct {
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
	SessionID      string    `json:"sessionId"`
	Message        string    `json:"message"`
	CurrentAgent   AgentType `json:"currentAgent"`
	SuggestedAgent AgentType `json:"suggestedAgent"`
}
