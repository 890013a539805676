package bus

import (
	"context"

	"github.com/aidevlab/aidev-chat/internal/domain"
)

// Handler processes one received envelope. Returning an error leaves the
// envelope unacknowledged, so the bus redelivers it (at-least-once).
type Handler func(ctx context.Context, env *domain.AgentEnvelope) error

// Bus transports agent envelopes. Delivery is at-least-once and ordered
// within a conversation; duplicates are possible.
type Bus interface {
	// Send enqueues an envelope, keyed by its conversation grouping key
	// and per-send uniqueness token.
	Send(ctx context.Context, env *domain.AgentEnvelope) error

	// Consume blocks, delivering envelopes to h until ctx is done.
	Consume(ctx context.Context, h Handler) error
}
