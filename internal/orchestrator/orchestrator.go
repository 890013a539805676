package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aidevlab/aidev-chat/internal/agent"
	"github.com/aidevlab/aidev-chat/internal/bus"
	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/aidevlab/aidev-chat/internal/llm"
	"github.com/aidevlab/aidev-chat/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// maxHistoryItems bounds the conversation history included in a prompt.
// Older entries stay in the store but are dropped from model context.
const maxHistoryItems = 20

// EnvelopeDeduper suppresses recently seen envelope tokens. Best effort.
type EnvelopeDeduper interface {
	Seen(ctx context.Context, token string) (bool, error)
}

// Orchestrator coordinates one turn: session resolution, context
// extraction, routing, generation, persistence and collaboration. All
// collaborators are injected at construction time.
type Orchestrator struct {
	sessions   *session.Manager
	messages   domain.MessageRepository
	profiles   domain.ProfileRepository
	llm        llm.Generator
	router     *agent.Router
	extractor  *agent.Extractor
	summarizer *agent.Summarizer
	estimator  *agent.Estimator
	bus        bus.Bus
	deduper    EnvelopeDeduper
	tasks      *TaskRunner
}

// New creates a turn orchestrator. profiles and deduper may be nil.
func New(
	sessions *session.Manager,
	messages domain.MessageRepository,
	profiles domain.ProfileRepository,
	generator llm.Generator,
	router *agent.Router,
	extractor *agent.Extractor,
	summarizer *agent.Summarizer,
	estimator *agent.Estimator,
	agentBus bus.Bus,
	deduper EnvelopeDeduper,
	tasks *TaskRunner,
) *Orchestrator {
	return &Orchestrator{
		sessions:   sessions,
		messages:   messages,
		profiles:   profiles,
		llm:        generator,
		router:     router,
		extractor:  extractor,
		summarizer: summarizer,
		estimator:  estimator,
		bus:        agentBus,
		deduper:    deduper,
		tasks:      tasks,
	}
}

// Tasks exposes the background task runner (shutdown waits on it).
func (o *Orchestrator) Tasks() *TaskRunner {
	return o.tasks
}

// HandleUserTurn processes one inbound user utterance and returns the
// assistant reply.
func (o *Orchestrator) HandleUserTurn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error) {
	if req.UserID == "" || req.Message == "" {
		return nil, fmt.Errorf("%w: userId and message are required", domain.ErrValidation)
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = fmt.Sprintf("chat_%s", uuid.NewString())
	}

	sess, err := o.resolveSession(ctx, req, conversationID)
	if err != nil {
		return nil, err
	}

	// Effective persona for this turn: explicit request wins, otherwise
	// the session's current persona. Unknown values fall back to default.
	current := sess.CurrentAgent
	if !current.Valid() {
		current = domain.AgentDefault
	}
	if req.AgentType != "" {
		current = domain.NormalizeAgentType(req.AgentType)
	}

	if err := o.sessions.SetCurrentAgent(ctx, sess.SessionID, current); err != nil {
		return nil, err
	}

	history, err := o.messages.ListByConversation(ctx, req.UserID, conversationID, maxHistoryItems)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch history")
		history = []domain.Message{}
	}

	// Enrich session state from the utterance. Extraction failures
	// degrade to a neutral result and never abort the turn.
	extracted := o.extractor.Extract(ctx, req.Message, history)
	o.mergeExtractedContext(ctx, sess.SessionID, extracted)

	now := time.Now()
	userMsg := domain.NewMessage(req.UserID, conversationID, domain.RoleUser, req.Message, "", now)
	if err := o.messages.Append(ctx, userMsg); err != nil {
		return nil, err
	}

	if o.summarizer.ShouldSummarize(sess, history) {
		o.spawnSummarizer(sess.SessionID, req.UserID, conversationID)
	}

	suggested := o.router.Route(ctx, req.Message, current, sess.State.ConversationSummary)

	var reply string
	nextAgent := current
	if suggested != current {
		reply = o.handoffReply(ctx, current, suggested, req.Message)
		nextAgent = suggested

		if err := o.sessions.SetCurrentAgent(ctx, sess.SessionID, suggested); err != nil {
			log.Error().Err(err).Msg("failed to persist persona switch")
		}
		o.applyState(ctx, sess.SessionID, session.AppendInteraction{Interaction: domain.Interaction{
			Type:      domain.InteractionAgentSwitch,
			From:      current,
			To:        suggested,
			Reason:    "user_query_analysis",
			Timestamp: time.Now(),
		}})
	} else {
		reply, err = o.generateReply(ctx, sess, current, req.Message, history)
		if err != nil {
			// The user message stays persisted: an acceptable ghost
			// turn the client may retry.
			return nil, fmt.Errorf("%w: %v", domain.ErrInference, err)
		}

		if current == domain.AgentPreSales && agent.MatchesPricingQuestion(req.Message) {
			if estimate, err := o.estimator.Estimate(ctx, req.Message); err == nil {
				reply += "\n\n" + estimate
			} else {
				log.Warn().Err(err).Msg("pricing estimation skipped")
			}
		}

		if decision := o.router.CheckCollaboration(ctx, req.Message, reply, current); decision.Needed {
			reply += o.startCollaboration(ctx, sess, current, req.Message, reply, decision)
		}
	}

	assistantMsg := domain.NewMessage(req.UserID, conversationID, domain.RoleAssistant, reply, nextAgent, time.Now())
	if err := o.messages.Append(ctx, assistantMsg); err != nil {
		// Generated text is lost if this write fails; nothing to
		// compensate with.
		log.Error().Err(err).Msg("failed to persist assistant reply")
		return nil, err
	}

	o.applyState(ctx, sess.SessionID, session.AppendInteraction{Interaction: domain.Interaction{
		Type:              domain.InteractionUserDialog,
		AgentType:         nextAgent,
		UserMessageID:     userMsg.MessageID,
		ResponseMessageID: assistantMsg.MessageID,
		Timestamp:         time.Now(),
	}})

	return &domain.TurnResponse{
		UserID:         req.UserID,
		ConversationID: conversationID,
		SessionID:      sess.SessionID,
		Message:        reply,
		CurrentAgent:   current,
		SuggestedAgent: nextAgent,
	}, nil
}

func (o *Orchestrator) resolveSession(ctx context.Context, req domain.TurnRequest, conversationID string) (*domain.Session, error) {
	if req.SessionID != "" {
		sess, err := o.sessions.Get(ctx, req.SessionID)
		if err == nil {
			return sess, nil
		}
		log.Warn().Err(err).Str("session_id", req.SessionID).Msg("provided session not found, resolving by conversation")
	}
	return o.sessions.GetOrCreate(ctx, req.UserID, conversationID)
}

func (o *Orchestrator) mergeExtractedContext(ctx context.Context, sessionID string, extracted agent.ExtractedContext) {
	var updates []session.StateUpdate
	if len(extracted.Entities) > 0 {
		updates = append(updates, session.MergeEntities{Entities: extracted.Entities})
	}
	for _, topic := range extracted.Topics {
		updates = append(updates, session.AddTopic{Topic: topic})
	}
	if len(updates) == 0 {
		return
	}
	o.applyState(ctx, sessionID, updates...)
}

// applyState merges updates and logs failures; state enrichment is never
// fatal to a turn.
func (o *Orchestrator) applyState(ctx context.Context, sessionID string, updates ...session.StateUpdate) {
	if err := o.sessions.ApplyStateUpdate(ctx, sessionID, updates...); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to apply state update")
	}
}

// generateReply builds the persona prompt and asks the capable tier.
func (o *Orchestrator) generateReply(ctx context.Context, sess *domain.Session, persona domain.AgentType, utterance string, history []domain.Message) (string, error) {
	req := llm.Request{
		System:   o.buildSystemPrompt(persona, &sess.State),
		Messages: append(historyMessages(history), llm.Message{Role: llm.RoleUser, Content: utterance}),
	}
	return o.llm.GenerateWith(ctx, o.preferredProvider(ctx, sess.UserID), llm.TierCapable, req)
}

// buildSystemPrompt augments the persona instructions with the rolling
// summary and detected entities when present.
func (o *Orchestrator) buildSystemPrompt(persona domain.AgentType, state *domain.SessionState) string {
	var sb strings.Builder
	sb.WriteString(agent.SystemPrompt(persona))

	if state.ConversationSummary != "" {
		sb.WriteString("\n\n以下は現在までの会話の要約です：\n")
		sb.WriteString(state.ConversationSummary)
	}
	if len(state.DetectedEntities) > 0 {
		sb.WriteString("\n\n以下は会話から検出された重要な情報です：")
		for k, v := range state.DetectedEntities {
			fmt.Fprintf(&sb, "\n- %s: %s", k, v)
		}
	}
	return sb.String()
}

// historyMessages converts the trailing history into prompt messages,
// excluding system-role entries.
func historyMessages(history []domain.Message) []llm.Message {
	var msgs []llm.Message
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			continue
		}
		msgs = append(msgs, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	return msgs
}

func (o *Orchestrator) preferredProvider(ctx context.Context, userID string) string {
	if o.profiles == nil {
		return ""
	}
	profile, err := o.profiles.Get(ctx, userID)
	if err != nil || profile == nil {
		return ""
	}
	return profile.PreferredProvider
}

// handoffReply has the current persona explain the upcoming switch instead
// of answering as the new persona. Falls back to canned text on failure.
func (o *Orchestrator) handoffReply(ctx context.Context, current, suggested domain.AgentType, utterance string) string {
	system := fmt.Sprintf(
		"あなたはaiDevシステムの%sエージェントです。ユーザーの質問内容に基づいて、より専門的な対応ができる%sエージェントへの切り替えを提案してください。丁寧かつ簡潔に、切り替え理由と%sエージェントができることを説明してください。",
		current, suggested, suggested,
	)

	reply, err := o.llm.Generate(ctx, llm.TierCapable, llm.Request{
		System:   system,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: utterance}},
	})
	if err != nil {
		log.Error().Err(err).Msg("handoff explanation failed, using fallback")
		return fmt.Sprintf("ご質問の内容から、%sエージェントがより適切な回答を提供できると判断しました。引き続き%sエージェントが対応いたします。", suggested, suggested)
	}
	return reply
}

// startCollaboration enqueues a background consultation envelope and
// returns the inline notice appended to the reply. Bus failures lose only
// the collaboration, never the turn.
func (o *Orchestrator) startCollaboration(ctx context.Context, sess *domain.Session, current domain.AgentType, utterance, reply string, decision agent.CollaborationDecision) string {
	question := decision.Question
	if question == "" {
		question = utterance
	}

	briefing := fmt.Sprintf(
		"現在のエージェント(%s)が処理しているユーザークエリについて、専門的な知見が必要です。\n\nユーザーの質問: %s\n\n%sエージェントの回答: %s...",
		current, utterance, current, truncate(reply, 300),
	)

	env := &domain.AgentEnvelope{
		UserID:              sess.UserID,
		ConversationID:      sess.ConversationID,
		SessionID:           sess.SessionID,
		SourceAgent:         current,
		TargetAgent:         decision.Target,
		Message:             question,
		Context:             briefing,
		ConversationSummary: sess.State.ConversationSummary,
		RequiresResponse:    true,
		Timestamp:           time.Now(),
	}

	o.tasks.Go("collaboration-forward", func(ctx context.Context) {
		if err := o.bus.Send(ctx, env); err != nil {
			log.Error().Err(err).
				Str("target", decision.Target.String()).
				Msg("collaboration forwarding lost")
		}
	})

	o.applyState(ctx, sess.SessionID, session.SetPendingCollaboration{
		Collaboration: &domain.PendingCollaboration{
			From:      current,
			To:        decision.Target,
			Question:  question,
			Timestamp: env.Timestamp,
		},
	})

	return fmt.Sprintf("\n\n(※ バックグラウンドで%sエージェントにも確認しています。追加情報があれば次回の会話で共有します)", decision.Target)
}

func (o *Orchestrator) spawnSummarizer(sessionID, userID, conversationID string) {
	o.tasks.Go("summarize", func(ctx context.Context) {
		history, err := o.messages.ListByConversation(ctx, userID, conversationID, 0)
		if err != nil {
			log.Error().Err(err).Msg("summary history fetch failed")
			return
		}

		summary, err := o.summarizer.Summarize(ctx, history)
		if err != nil {
			log.Error().Err(err).Msg("summary generation failed")
			return
		}

		if err := o.sessions.ApplyStateUpdate(ctx, sessionID, session.SetSummary{
			Summary:   summary,
			UpdatedAt: time.Now(),
		}); err != nil {
			log.Error().Err(err).Msg("summary persist failed")
		}
	})
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
