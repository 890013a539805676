package llm

import "context"

// Role tags a chat message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry in a chat request.
type Message struct {
	Role    Role
	Content string
}

// Request contains a full generation request: system instructions plus the
// ordered conversation so far.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// Response contains a generation result.
type Response struct {
	Text       string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for text-generation backends.
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Chat generates a reply for the given conversation
	Chat(ctx context.Context, req Request, model string) (*Response, error)
}
