package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/aidevlab/aidev-chat/internal/agent"
	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/aidevlab/aidev-chat/internal/llm"
	"github.com/aidevlab/aidev-chat/internal/session"
	"github.com/rs/zerolog/log"
)

// HandleEnvelope processes one inter-agent collaboration envelope pulled
// from the bus. A returned error leaves the envelope unacknowledged so the
// bus redelivers it; duplicates and malformed envelopes are absorbed here.
func (o *Orchestrator) HandleEnvelope(ctx context.Context, env *domain.AgentEnvelope) error {
	if err := env.Validate(); err != nil {
		// Invalid envelopes never become valid on redelivery.
		log.Error().Err(err).Msg("dropping invalid envelope")
		return nil
	}

	logger := log.With().
		Str("conversation_id", env.ConversationID).
		Str("source", env.SourceAgent.String()).
		Str("target", env.TargetAgent.String()).
		Bool("is_response", env.IsResponse).
		Logger()

	if o.deduper != nil {
		seen, err := o.deduper.Seen(ctx, env.DedupToken())
		if err != nil {
			logger.Warn().Err(err).Msg("envelope dedup check failed, processing anyway")
		} else if seen {
			logger.Info().Msg("duplicate envelope skipped")
			return nil
		}
	}

	sess, err := o.sessions.GetOrCreate(ctx, env.UserID, env.ConversationID)
	if err != nil {
		return fmt.Errorf("resolving collaboration session: %w", err)
	}

	if err := o.sessions.SetCurrentAgent(ctx, sess.SessionID, env.TargetAgent); err != nil {
		logger.Error().Err(err).Msg("failed to switch session to target persona")
	}

	history, err := o.messages.ListByConversation(ctx, env.UserID, env.ConversationID, maxHistoryItems)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch history for collaboration")
		history = []domain.Message{}
	}

	// Leave a visible trace of the hand-off in the conversation log.
	note := fmt.Sprintf("[%s → %sへの連携]: %s", env.SourceAgent, env.TargetAgent, env.Message)
	transferMsg := domain.NewMessage(env.UserID, env.ConversationID, domain.RoleSystem, note, env.TargetAgent, time.Now())
	if err := o.messages.Append(ctx, transferMsg); err != nil {
		logger.Error().Err(err).Msg("failed to persist transfer note")
	}

	reply, err := o.llm.Generate(ctx, llm.TierCapable, llm.Request{
		System:   o.buildEnvelopeSystemPrompt(env, sess),
		Messages: append(historyMessages(history), llm.Message{Role: llm.RoleUser, Content: env.Message}),
	})
	if err != nil {
		// Transient inference failure: let the bus try again.
		return fmt.Errorf("%w: collaboration reply: %v", domain.ErrInference, err)
	}

	assistantMsg := domain.NewMessage(env.UserID, env.ConversationID, domain.RoleAssistant, reply, env.TargetAgent, time.Now())
	if err := o.messages.Append(ctx, assistantMsg); err != nil {
		return fmt.Errorf("persisting collaboration reply: %w", err)
	}

	o.applyState(ctx, sess.SessionID, session.AppendInteraction{Interaction: domain.Interaction{
		Type:              domain.InteractionAgentTransfer,
		From:              env.SourceAgent,
		To:                env.TargetAgent,
		ResponseMessageID: assistantMsg.MessageID,
		Reason:            "collaboration",
		Timestamp:         time.Now(),
	}})

	if env.RequiresResponse && env.SourceAgent != env.TargetAgent {
		briefing := fmt.Sprintf("%sからの回答: %s...", env.TargetAgent, truncate(reply, 100))
		response := domain.ResponseEnvelope(env, reply, briefing, time.Now())
		if err := o.bus.Send(ctx, response); err != nil {
			// The answer is already persisted; only the round trip back
			// to the source persona is lost.
			logger.Error().Err(err).Msg("failed to send collaboration response")
		}
	}

	logger.Info().Msg("collaboration envelope handled")
	return nil
}

// buildEnvelopeSystemPrompt frames the target persona with the forwarded
// briefing, the rolling summary and any attached metadata.
func (o *Orchestrator) buildEnvelopeSystemPrompt(env *domain.AgentEnvelope, sess *domain.Session) string {
	system := agent.SystemPrompt(env.TargetAgent)

	if env.Context != "" {
		system += "\n\n以下は連携元エージェントからの状況説明です：\n" + env.Context
	}

	summary := env.ConversationSummary
	if summary == "" {
		summary = sess.State.ConversationSummary
	}
	if summary != "" {
		system += "\n\n以下は現在までの会話の要約です：\n" + summary
	}

	for k, v := range env.Metadata {
		system += fmt.Sprintf("\n\n%s:\n%s", k, v)
	}
	return system
}
