package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/aidevlab/aidev-chat/internal/llm"
)

const (
	// summarizeMinMessages is the minimum number of non-system messages
	// before a summary is worth producing.
	summarizeMinMessages = 5

	// summarizeInterval is the minimum gap between summary refreshes.
	summarizeInterval = 10 * time.Minute

	summarizerSnippetLength = 200
)

// Summarizer compresses older conversation history into a rolling
// natural-language digest. It runs out-of-band: replies never wait on it.
type Summarizer struct {
	llm llm.Generator
}

// NewSummarizer creates a summarizer
func NewSummarizer(generator llm.Generator) *Summarizer {
	return &Summarizer{llm: generator}
}

const summarizerSystemPrompt = `あなたはaiDevシステムの会話要約エージェントです。ユーザーとAIの間の会話履歴を要約し、次のポイントを含む簡潔な要約を150-200文字程度で作成してください：

1. ユーザーの主な関心事/質問
2. 明らかになった重要な要件や制約
3. すでに提案された解決策
4. 次に議論すべき重要なポイント

要約は第三者がこの会話の文脈を理解できるように簡潔明瞭に作成してください。`

// ShouldSummarize reports whether the session's summary is due for a
// refresh given the conversation history.
func (s *Summarizer) ShouldSummarize(session *domain.Session, history []domain.Message) bool {
	nonSystem := 0
	for _, msg := range history {
		if msg.Role != domain.RoleSystem {
			nonSystem++
		}
	}
	if nonSystem < summarizeMinMessages {
		return false
	}

	last := session.State.LastSummaryUpdate
	return last == nil || time.Since(*last) > summarizeInterval
}

// Summarize produces a fresh digest of the non-system history.
func (s *Summarizer) Summarize(ctx context.Context, history []domain.Message) (string, error) {
	var sb strings.Builder
	for _, msg := range history {
		if msg.Role == domain.RoleSystem {
			continue
		}
		speaker := "AI"
		if msg.Role == domain.RoleUser {
			speaker = "ユーザー"
		}
		fmt.Fprintf(&sb, "%s: %s\n\n", speaker, truncateRunes(msg.Content, summarizerSnippetLength))
	}

	summary, err := s.llm.Generate(ctx, llm.TierFast, llm.Request{
		System: summarizerSystemPrompt,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: "以下の会話履歴を要約してください：\n\n" + sb.String(),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	return summary, nil
}
