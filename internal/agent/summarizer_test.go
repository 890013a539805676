package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/aidevlab/aidev-chat/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func dialogHistory(n int) []domain.Message {
	msgs := make([]domain.Message, 0, n)
	for i := 0; i < n; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		msgs = append(msgs, domain.Message{
			Role:      role,
			Content:   fmt.Sprintf("メッセージ%d", i),
			Timestamp: time.Now(),
		})
	}
	return msgs
}

func TestSummarizer_ShouldSummarize(t *testing.T) {
	s := NewSummarizer(nil)

	t.Run("too few messages", func(t *testing.T) {
		sess := &domain.Session{State: domain.NewSessionState()}
		assert.False(t, s.ShouldSummarize(sess, dialogHistory(4)))
	})

	t.Run("system messages do not count", func(t *testing.T) {
		history := dialogHistory(4)
		history = append(history, domain.Message{Role: domain.RoleSystem, Content: "連携メモ"})

		sess := &domain.Session{State: domain.NewSessionState()}
		assert.False(t, s.ShouldSummarize(sess, history))
	})

	t.Run("enough messages and no prior summary", func(t *testing.T) {
		sess := &domain.Session{State: domain.NewSessionState()}
		assert.True(t, s.ShouldSummarize(sess, dialogHistory(5)))
	})

	t.Run("recent summary suppresses refresh", func(t *testing.T) {
		sess := &domain.Session{State: domain.NewSessionState()}
		recent := time.Now().Add(-2 * time.Minute)
		sess.State.LastSummaryUpdate = &recent

		assert.False(t, s.ShouldSummarize(sess, dialogHistory(8)))
	})

	t.Run("stale summary is refreshed", func(t *testing.T) {
		sess := &domain.Session{State: domain.NewSessionState()}
		stale := time.Now().Add(-15 * time.Minute)
		sess.State.LastSummaryUpdate = &stale

		assert.True(t, s.ShouldSummarize(sess, dialogHistory(8)))
	})
}

func TestSummarizer_Summarize(t *testing.T) {
	ctx := context.Background()

	t.Run("excludes system messages from the transcript", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", ctx, llm.TierFast, mock.MatchedBy(func(req llm.Request) bool {
			content := req.Messages[0].Content
			return !strings.Contains(content, "連携メモ") && strings.Contains(content, "ユーザー: メッセージ0")
		})).Return("要約結果", nil)

		history := dialogHistory(5)
		history = append(history, domain.Message{Role: domain.RoleSystem, Content: "連携メモ"})

		summary, err := NewSummarizer(gen).Summarize(ctx, history)
		assert.NoError(t, err)
		assert.Equal(t, "要約結果", summary)
		gen.AssertExpectations(t)
	})

	t.Run("propagates inference failure", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", ctx, llm.TierFast, mock.Anything).Return("", assert.AnError)

		_, err := NewSummarizer(gen).Summarize(ctx, dialogHistory(5))
		assert.Error(t, err)
	})
}
