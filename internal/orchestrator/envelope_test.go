package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testEnvelope() *domain.AgentEnvelope {
	return &domain.AgentEnvelope{
		UserID:           "user123",
		ConversationID:   "chat_abc",
		SessionID:        "session_1",
		SourceAgent:      domain.AgentPreSales,
		TargetAgent:      domain.AgentSystemArchitect,
		Message:          "マルチAZ構成の詳細を教えてください",
		Context:          "preSalesからの状況説明",
		RequiresResponse: true,
		Timestamp:        time.Now(),
	}
}

func TestHandleEnvelope_Collaboration(t *testing.T) {
	f := newFixture(&stubDeduper{})
	sess := testSession(domain.AgentPreSales)
	f.wireSession(sess, []domain.Message{})

	f.bus.On("Send", mock.Anything, mock.MatchedBy(func(env *domain.AgentEnvelope) bool {
		return env.IsResponse && !env.RequiresResponse &&
			env.SourceAgent == domain.AgentSystemArchitect &&
			env.TargetAgent == domain.AgentPreSales &&
			env.Metadata["originalMessageContext"] == "preSalesからの状況説明"
	})).Return(nil)

	err := f.orch.HandleEnvelope(context.Background(), testEnvelope())
	require.NoError(t, err)

	appended := f.messages.Appended()
	require.Len(t, appended, 2)
	// A visible transfer note precedes the target persona's answer.
	assert.Equal(t, domain.RoleSystem, appended[0].Role)
	assert.Contains(t, appended[0].Content, "[preSales → systemArchitectへの連携]")
	assert.Equal(t, domain.RoleAssistant, appended[1].Role)
	assert.Equal(t, domain.AgentSystemArchitect, appended[1].AgentType)

	f.sessions.AssertCalled(t, "Touch", mock.Anything, "session_1", domain.AgentSystemArchitect, mock.Anything)

	require.Len(t, sess.State.Interactions, 1)
	assert.Equal(t, domain.InteractionAgentTransfer, sess.State.Interactions[0].Type)
	require.Len(t, sess.State.AgentHistory, 1)
	assert.Equal(t, domain.AgentPreSales, sess.State.AgentHistory[0].From)

	f.bus.AssertExpectations(t)
}

func TestHandleEnvelope_ResponseDoesNotEcho(t *testing.T) {
	f := newFixture(&stubDeduper{})
	sess := testSession(domain.AgentPreSales)
	f.wireSession(sess, []domain.Message{})

	env := testEnvelope()
	env.SourceAgent = domain.AgentSystemArchitect
	env.TargetAgent = domain.AgentPreSales
	env.RequiresResponse = false
	env.IsResponse = true

	err := f.orch.HandleEnvelope(context.Background(), env)
	require.NoError(t, err)

	// A response envelope terminates the exchange.
	f.bus.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandleEnvelope_DuplicateSkipped(t *testing.T) {
	f := newFixture(&stubDeduper{seen: true})

	err := f.orch.HandleEnvelope(context.Background(), testEnvelope())
	require.NoError(t, err)

	assert.Empty(t, f.messages.Appended())
	f.sessions.AssertNotCalled(t, "FindByConversation", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEnvelope_InvalidDropped(t *testing.T) {
	f := newFixture(&stubDeduper{})

	env := testEnvelope()
	env.IsResponse = true // response that still requires a response

	err := f.orch.HandleEnvelope(context.Background(), env)
	assert.NoError(t, err)
	assert.Empty(t, f.messages.Appended())
}

func TestHandleEnvelope_InferenceFailureRedelivers(t *testing.T) {
	f := newFixture(&stubDeduper{})
	f.gen.replyErr = assert.AnError

	sess := testSession(domain.AgentPreSales)
	f.wireSession(sess, []domain.Message{})

	err := f.orch.HandleEnvelope(context.Background(), testEnvelope())
	assert.ErrorIs(t, err, domain.ErrInference)

	f.bus.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandleEnvelope_DedupFailureProcessesAnyway(t *testing.T) {
	f := newFixture(&stubDeduper{err: assert.AnError})
	sess := testSession(domain.AgentPreSales)
	f.wireSession(sess, []domain.Message{})
	f.bus.On("Send", mock.Anything, mock.Anything).Return(nil)

	err := f.orch.HandleEnvelope(context.Background(), testEnvelope())
	assert.NoError(t, err)
	assert.Len(t, f.messages.Appended(), 2)
}
