package session

import (
	"time"

	"github.com/aidevlab/aidev-chat/internal/domain"
)

// StateUpdate is one operation against a session's state. The closed set of
// implementations replaces free-form partial-update maps: each transient
// input carries its own payload type and the reducer decides exactly how it
// merges.
type StateUpdate interface {
	isStateUpdate()
}

// SetSummary overwrites the rolling conversation summary.
type SetSummary struct {
	Summary   string
	UpdatedAt time.Time
}

// AddTopic inserts a topic into the deduplicated topic set.
type AddTopic struct {
	Topic string
}

// MergeEntities shallow-merges entities; existing keys are overwritten.
type MergeEntities struct {
	Entities map[string]string
}

// AppendInteraction appends to the bounded interaction log. Transfers are
// also recorded in the unbounded agent history.
type AppendInteraction struct {
	Interaction domain.Interaction
}

// SetPendingCollaboration overwrites the single outstanding collaboration.
type SetPendingCollaboration struct {
	Collaboration *domain.PendingCollaboration
}

func (SetSummary) isStateUpdate()              {}
func (AddTopic) isStateUpdate()                {}
func (MergeEntities) isStateUpdate()           {}
func (AppendInteraction) isStateUpdate()       {}
func (SetPendingCollaboration) isStateUpdate() {}

// Reduce applies updates to state in order. Applying the same update twice
// yields the same state as applying it once, except for AppendInteraction,
// which records each occurrence.
func Reduce(state *domain.SessionState, updates ...StateUpdate) {
	for _, u := range updates {
		switch op := u.(type) {
		case SetSummary:
			state.ConversationSummary = op.Summary
			at := op.UpdatedAt
			state.LastSummaryUpdate = &at

		case AddTopic:
			if op.Topic == "" || containsTopic(state.Topics, op.Topic) {
				continue
			}
			state.Topics = append(state.Topics, op.Topic)

		case MergeEntities:
			if state.DetectedEntities == nil {
				state.DetectedEntities = map[string]string{}
			}
			for k, v := range op.Entities {
				state.DetectedEntities[k] = v
			}

		case AppendInteraction:
			state.Interactions = append(state.Interactions, op.Interaction)
			if n := len(state.Interactions); n > domain.MaxInteractions {
				state.Interactions = state.Interactions[n-domain.MaxInteractions:]
			}
			if op.Interaction.Type == domain.InteractionAgentTransfer {
				state.AgentHistory = append(state.AgentHistory, domain.AgentHandoff{
					From:      op.Interaction.From,
					To:        op.Interaction.To,
					Timestamp: op.Interaction.Timestamp,
				})
			}

		case SetPendingCollaboration:
			state.PendingCollaboration = op.Collaboration
		}
	}
}

func containsTopic(topics []string, topic string) bool {
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}
