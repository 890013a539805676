package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/aidevlab/aidev-chat/internal/llm"
	"github.com/rs/zerolog/log"
)

const (
	extractorHistoryDepth  = 3
	extractorSnippetLength = 100
)

// ExtractedContext is the structured result of utterance analysis.
type ExtractedContext struct {
	Entities map[string]string `json:"entities"`
	Intent   string            `json:"intent"`
	Topics   []string          `json:"topics"`
}

// NeutralContext is returned whenever extraction cannot produce a result.
// Extraction failures never abort a turn.
func NeutralContext() ExtractedContext {
	return ExtractedContext{
		Entities: map[string]string{},
		Intent:   "general_query",
		Topics:   []string{},
	}
}

// Extractor derives intent, entities and topics from a user utterance
// using the fast inference tier.
type Extractor struct {
	llm llm.Generator
}

// NewExtractor creates a context extractor
func NewExtractor(generator llm.Generator) *Extractor {
	return &Extractor{llm: generator}
}

const extractorSystemPrompt = `あなたはaiDevシステムのコンテキスト分析エージェントです。ユーザーのメッセージを分析し、以下の情報を抽出してください：

1. エンティティ: ユーザーが言及している重要な固有名詞や値（企業名、プロジェクト名、金額、日付など）
2. 意図: ユーザーの主な意図（質問、要求、確認など）
3. トピック: 会話のメイントピック（AWS、アーキテクチャ、コスト、セキュリティなど）

JSON形式で回答してください。例：
{
  "entities": {
    "company": "Example Corp",
    "project": "クラウド移行",
    "budget": "500万円"
  },
  "intent": "cost_estimation",
  "topics": ["aws", "migration", "cost"]
}

該当するものがない場合は空のオブジェクトや配列を返してください。`

// Extract analyzes the utterance with up to the three most recent prior
// messages as disambiguating context.
func (e *Extractor) Extract(ctx context.Context, utterance string, recentHistory []domain.Message) ExtractedContext {
	system := extractorSystemPrompt
	if historyBlock := formatRecentHistory(recentHistory); historyBlock != "" {
		system += historyBlock
	}

	raw, err := e.llm.Generate(ctx, llm.TierFast, llm.Request{
		System:   system,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: utterance}},
	})
	if err != nil {
		log.Error().Err(err).Msg("context extraction failed")
		return NeutralContext()
	}

	extracted, err := parseExtractedContext(raw)
	if err != nil {
		log.Error().Err(err).Msg("context extraction parse failed")
		return NeutralContext()
	}
	return extracted
}

func parseExtractedContext(raw string) (ExtractedContext, error) {
	// Entity values may come back as numbers or nested structures; keep
	// whatever can be rendered as a string.
	var parsed struct {
		Entities map[string]any `json:"entities"`
		Intent   string         `json:"intent"`
		Topics   []string       `json:"topics"`
	}
	if err := decodeModelJSON(raw, &parsed); err != nil {
		return ExtractedContext{}, err
	}

	out := NeutralContext()
	if parsed.Intent != "" {
		out.Intent = parsed.Intent
	}
	if parsed.Topics != nil {
		out.Topics = parsed.Topics
	}
	for k, v := range parsed.Entities {
		out.Entities[k] = fmt.Sprint(v)
	}
	return out, nil
}

func formatRecentHistory(history []domain.Message) string {
	if len(history) == 0 {
		return ""
	}

	recent := make([]domain.Message, len(history))
	copy(recent, history)
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})
	if len(recent) > extractorHistoryDepth {
		recent = recent[:extractorHistoryDepth]
	}

	var sb strings.Builder
	sb.WriteString("\n\n以下は直近の会話履歴です：\n")
	for _, msg := range recent {
		speaker := "システム"
		if msg.Role == domain.RoleUser {
			speaker = "ユーザー"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, truncateRunes(msg.Content, extractorSnippetLength))
	}
	return sb.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
