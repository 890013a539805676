package agent

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/aidevlab/aidev-chat/internal/llm"
	"github.com/rs/zerolog/log"
)

// minRoutingLength is the utterance length (in runes) below which routing
// never switches personas: too little signal.
const minRoutingLength = 20

// Router decides per turn whether to switch personas and whether the
// current persona's draft reply should be corroborated by another persona.
// It is a pure decision function over the fast inference tier and fails
// open to the current persona on any error.
type Router struct {
	llm llm.Generator
}

// NewRouter creates an agent router
func NewRouter(generator llm.Generator) *Router {
	return &Router{llm: generator}
}

const routingSystemPrompt = `あなたはaiDevシステムの振り分けエージェントです。ユーザーの質問内容に基づいて、最適なエージェントタイプを選択してください。選択肢は以下の通りです：

1. preSales - AWS環境構築や開発の初期相談、コスト見積り、要件定義などを担当
2. itConsultant - IT戦略、技術選定、アーキテクチャなどの専門的なアドバイスを担当
3. systemArchitect - AWS環境の詳細設計や構築支援、IaCコードの生成などを担当
4. default - 一般的な質問や他のエージェントに明確に当てはまらない質問を担当

回答は選択したエージェントタイプの名前（preSales、itConsultant、systemArchitect、default）のみを返してください。`

// Route suggests the persona best suited to answer the utterance. The
// current persona is returned unchanged when the utterance is too short,
// when the model suggests the current persona or the default, when the
// answer matches no known label, or when inference fails.
func (r *Router) Route(ctx context.Context, utterance string, current domain.AgentType, conversationContext string) domain.AgentType {
	if utf8.RuneCountInString(utterance) < minRoutingLength {
		return current
	}

	user := fmt.Sprintf("現在のエージェントタイプ: %s\n\nユーザーの質問: %s\n\n最適なエージェントタイプを回答してください。", current, utterance)
	if conversationContext != "" {
		user = fmt.Sprintf("会話のコンテキスト:\n%s\n\n%s", conversationContext, user)
	}

	raw, err := r.llm.Generate(ctx, llm.TierFast, llm.Request{
		System:   routingSystemPrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: user}},
	})
	if err != nil {
		log.Error().Err(err).Msg("agent routing failed, keeping current persona")
		return current
	}

	suggested, ok := domain.ParseAgentType(raw)
	if !ok {
		return current
	}
	// Never auto-demote to the generic persona.
	if suggested == current || suggested == domain.AgentDefault {
		return current
	}
	return suggested
}

// CollaborationDecision is the outcome of a collaboration check.
type CollaborationDecision struct {
	Needed   bool
	Target   domain.AgentType
	Reason   string
	Question string
}

const collaborationPromptFormat = `あなたはaiDevシステムの連携判断エージェントです。現在のエージェント(%s)の回答を確認し、他のエージェントへの連携が必要かどうかを判断してください。

以下の場合に連携が必要です：
- 現在のエージェントの専門領域を超える詳細な質問がある
- 他のエージェントがより詳しく回答できる内容がある
- 複数の専門分野にまたがる質問である

連携先の選択肢：
%s

現在のエージェントは "%s" です。

JSON形式で回答してください：
{
  "needed": true/false,
  "targetAgent": "連携先エージェント名(不要な場合はnull)",
  "reason": "連携が必要な理由",
  "question": "連携先エージェントへの質問内容"
}`

// CheckCollaboration decides whether the draft reply should be corroborated
// by a different persona in the background. The default persona is never a
// forwarding target and a persona never collaborates with itself. Fails
// closed: any error means no collaboration.
func (r *Router) CheckCollaboration(ctx context.Context, utterance, draftReply string, current domain.AgentType) CollaborationDecision {
	system := fmt.Sprintf(collaborationPromptFormat, current, agentRoleDescriptions, current)
	user := fmt.Sprintf("ユーザーの質問:\n%s\n\n現在のエージェント(%s)の回答:\n%s", utterance, current, draftReply)

	raw, err := r.llm.Generate(ctx, llm.TierFast, llm.Request{
		System:   system,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: user}},
	})
	if err != nil {
		log.Error().Err(err).Msg("collaboration check failed")
		return CollaborationDecision{}
	}

	var parsed struct {
		Needed      bool   `json:"needed"`
		TargetAgent string `json:"targetAgent"`
		Reason      string `json:"reason"`
		Question    string `json:"question"`
	}
	if err := decodeModelJSON(raw, &parsed); err != nil {
		log.Error().Err(err).Msg("collaboration check parse failed")
		return CollaborationDecision{}
	}
	if !parsed.Needed {
		return CollaborationDecision{}
	}

	target, ok := domain.ParseAgentType(parsed.TargetAgent)
	if !ok || target == domain.AgentDefault || target == current {
		return CollaborationDecision{}
	}

	return CollaborationDecision{
		Needed:   true,
		Target:   target,
		Reason:   parsed.Reason,
		Question: parsed.Question,
	}
}
