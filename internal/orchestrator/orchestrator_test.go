package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aidevlab/aidev-chat/internal/agent"
	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/aidevlab/aidev-chat/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	sessions *MockSessionRepository
	messages *MockMessageRepository
	profiles *MockProfileRepository
	bus      *MockBus
	gen      *scriptedGenerator
	tasks    *TaskRunner
	orch     *Orchestrator
}

func newFixture(deduper EnvelopeDeduper) *fixture {
	f := &fixture{
		sessions: new(MockSessionRepository),
		messages: new(MockMessageRepository),
		profiles: new(MockProfileRepository),
		bus:      new(MockBus),
		gen:      newScriptedGenerator(),
		tasks:    NewTaskRunner(nil),
	}
	f.orch = New(
		session.NewManager(f.sessions),
		f.messages,
		f.profiles,
		f.gen,
		agent.NewRouter(f.gen),
		agent.NewExtractor(f.gen),
		agent.NewSummarizer(f.gen),
		agent.NewEstimator(f.gen),
		f.bus,
		deduper,
		f.tasks,
	)
	return f
}

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

func testSession(current domain.AgentType) *domain.Session {
	return &domain.Session{
		SessionID:      "session_1",
		UserID:         "user123",
		ConversationID: "chat_abc",
		CurrentAgent:   current,
		State:          domain.NewSessionState(),
	}
}

// wireSession sets up the common store expectations for one existing session.
func (f *fixture) wireSession(sess *domain.Session, history []domain.Message) {
	f.sessions.On("FindByConversation", mock.Anything, sess.UserID, sess.ConversationID).Return(sess, nil)
	f.sessions.On("Get", mock.Anything, sess.SessionID).Return(sess, nil)
	f.sessions.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("Touch", mock.Anything, sess.SessionID, mock.Anything, mock.Anything).Return(nil)
	f.messages.On("ListByConversation", mock.Anything, sess.UserID, sess.ConversationID, mock.Anything).Return(history, nil)
	f.messages.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.profiles.On("Get", mock.Anything, sess.UserID).Return(nil, nil)
}

func TestHandleUserTurn_RoutineTurn(t *testing.T) {
	f := newFixture(nil)
	f.gen.extraction = `{"entities": {"budget": "500万円"}, "intent": "cost_estimation", "topics": ["aws", "cost"]}`

	sess := testSession(domain.AgentDefault)
	f.wireSession(sess, []domain.Message{})

	resp, err := f.orch.HandleUserTurn(context.Background(), domain.TurnRequest{
		UserID:         "user123",
		ConversationID: "chat_abc",
		Message:        "AWSの構成についてもう少し詳しく教えてください",
	})
	require.NoError(t, err)
	f.tasks.Wait()

	assert.Equal(t, "session_1", resp.SessionID)
	assert.Equal(t, "アシスタントの応答です", resp.Message)
	assert.Equal(t, domain.AgentDefault, resp.CurrentAgent)
	assert.Equal(t, domain.AgentDefault, resp.SuggestedAgent)

	appended := f.messages.Appended()
	require.Len(t, appended, 2)
	assert.Equal(t, domain.RoleUser, appended[0].Role)
	assert.Equal(t, domain.RoleAssistant, appended[1].Role)
	assert.Equal(t, domain.AgentDefault, appended[1].AgentType)

	// Extracted context is merged into the session state.
	assert.Equal(t, []string{"aws", "cost"}, sess.State.Topics)
	assert.Equal(t, "500万円", sess.State.DetectedEntities["budget"])

	require.Len(t, sess.State.Interactions, 1)
	interaction := sess.State.Interactions[0]
	assert.Equal(t, domain.InteractionUserDialog, interaction.Type)
	assert.Equal(t, appended[0].MessageID, interaction.UserMessageID)
	assert.Equal(t, appended[1].MessageID, interaction.ResponseMessageID)

	f.bus.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandleUserTurn_RejectsEmptyInput(t *testing.T) {
	f := newFixture(nil)

	_, err := f.orch.HandleUserTurn(context.Background(), domain.TurnRequest{UserID: "user123"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestHandleUserTurn_GeneratesConversationID(t *testing.T) {
	f := newFixture(nil)
	sess := testSession(domain.AgentDefault)

	f.sessions.On("FindByConversation", mock.Anything, "user123", mock.Anything).Return(nil, domain.ErrSessionNotFound)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		created := args.Get(1).(*domain.Session)
		sess.SessionID = created.SessionID
	})
	f.sessions.On("Get", mock.Anything, mock.Anything).Return(sess, nil)
	f.sessions.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("Touch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.messages.On("ListByConversation", mock.Anything, "user123", mock.Anything, mock.Anything).Return([]domain.Message{}, nil)
	f.messages.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.profiles.On("Get", mock.Anything, "user123").Return(nil, nil)

	resp, err := f.orch.HandleUserTurn(context.Background(), domain.TurnRequest{
		UserID:  "user123",
		Message: "こんにちは",
	})
	require.NoError(t, err)
	f.tasks.Wait()

	assert.Contains(t, resp.ConversationID, "chat_")
	assert.NotEmpty(t, resp.SessionID)
}

func TestHandleUserTurn_PreferredProvider(t *testing.T) {
	f := newFixture(nil)
	sess := testSession(domain.AgentDefault)

	f.sessions.On("FindByConversation", mock.Anything, sess.UserID, sess.ConversationID).Return(sess, nil)
	f.sessions.On("Get", mock.Anything, sess.SessionID).Return(sess, nil)
	f.sessions.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("Touch", mock.Anything, sess.SessionID, mock.Anything, mock.Anything).Return(nil)
	f.messages.On("ListByConversation", mock.Anything, sess.UserID, sess.ConversationID, mock.Anything).Return([]domain.Message{}, nil)
	f.messages.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.profiles.On("Get", mock.Anything, "user123").Return(&domain.UserProfile{
		UserID:            "user123",
		PreferredProvider: "openai",
	}, nil)

	_, err := f.orch.HandleUserTurn(context.Background(), domain.TurnRequest{
		UserID:         "user123",
		ConversationID: "chat_abc",
		Message:        "AWSの構成についてもう少し詳しく教えてください",
	})
	require.NoError(t, err)
	f.tasks.Wait()

	assert.Equal(t, "openai", f.gen.ReplyProvider())
}

func TestHandleUserTurn_Handoff(t *testing.T) {
	f := newFixture(nil)
	f.gen.routing = "systemArchitect"

	sess := testSession(domain.AgentDefault)
	f.wireSession(sess, []domain.Message{})

	resp, err := f.orch.HandleUserTurn(context.Background(), domain.TurnRequest{
		UserID:         "user123",
		ConversationID: "chat_abc",
		Message:        "VPCのサブネット設計とIaCコードの生成をお願いしたいです",
	})
	require.NoError(t, err)
	f.tasks.Wait()

	// The reply is the hand-off explanation, not a systemArchitect answer.
	assert.Equal(t, "切り替えのご案内です", resp.Message)
	assert.Equal(t, domain.AgentDefault, resp.CurrentAgent)
	assert.Equal(t, domain.AgentSystemArchitect, resp.SuggestedAgent)

	f.sessions.AssertCalled(t, "Touch", mock.Anything, "session_1", domain.AgentSystemArchitect, mock.Anything)

	require.Len(t, sess.State.Interactions, 2)
	assert.Equal(t, domain.InteractionAgentSwitch, sess.State.Interactions[0].Type)
	assert.Equal(t, domain.AgentSystemArchitect, sess.State.Interactions[0].To)

	appended := f.messages.Appended()
	require.Len(t, appended, 2)
	assert.Equal(t, domain.AgentSystemArchitect, appended[1].AgentType)
}

func TestHandleUserTurn_PricingAppendix(t *testing.T) {
	f := newFixture(nil)
	f.gen.routing = "preSales"

	sess := testSession(domain.AgentPreSales)
	f.wireSession(sess, []domain.Message{})

	resp, err := f.orch.HandleUserTurn(context.Background(), domain.TurnRequest{
		UserID:         "user123",
		ConversationID: "chat_abc",
		Message:        "EC2のt3.mediumを3台使う場合の料金を教えて",
	})
	require.NoError(t, err)
	f.tasks.Wait()

	assert.Contains(t, resp.Message, "アシスタントの応答です")
	assert.Contains(t, resp.Message, "### AWS料金概算")
	assert.Contains(t, resp.Message, "小規模: 約$30/月")
}

func TestHandleUserTurn_PricingOnlyForPreSales(t *testing.T) {
	f := newFixture(nil)
	sess := testSession(domain.AgentDefault)
	f.wireSession(sess, []domain.Message{})

	resp, err := f.orch.HandleUserTurn(context.Background(), domain.TurnRequest{
		UserID:         "user123",
		ConversationID: "chat_abc",
		Message:        "EC2のt3.mediumを3台使う場合の料金を教えて",
	})
	require.NoError(t, err)
	f.tasks.Wait()

	assert.NotContains(t, resp.Message, "### AWS料金概算")
}

func TestHandleUserTurn_Collaboration(t *testing.T) {
	f := newFixture(nil)
	f.gen.collaboration = `{"needed": true, "targetAgent": "itConsultant", "reason": "専門知見が必要", "question": "ライセンス体系について教えてください"}`

	sess := testSession(domain.AgentDefault)
	f.wireSession(sess, []domain.Message{})
	f.bus.On("Send", mock.Anything, mock.MatchedBy(func(env *domain.AgentEnvelope) bool {
		return env.TargetAgent == domain.AgentITConsultant &&
			env.RequiresResponse && !env.IsResponse &&
			env.Message == "ライセンス体系について教えてください"
	})).Return(nil)

	resp, err := f.orch.HandleUserTurn(context.Background(), domain.TurnRequest{
		UserID:         "user123",
		ConversationID: "chat_abc",
		Message:        "社内システムのライセンス方針も含めて検討したいです",
	})
	require.NoError(t, err)
	f.tasks.Wait()

	assert.Contains(t, resp.Message, "バックグラウンドでitConsultantエージェントにも確認しています")

	require.NotNil(t, sess.State.PendingCollaboration)
	assert.Equal(t, domain.AgentITConsultant, sess.State.PendingCollaboration.To)

	f.bus.AssertExpectations(t)
}

func TestHandleUserTurn_SummarizerRefresh(t *testing.T) {
	f := newFixture(nil)
	history := dialogHistory(6)

	sess := testSession(domain.AgentDefault)
	f.wireSession(sess, history)

	_, err := f.orch.HandleUserTurn(context.Background(), domain.TurnRequest{
		UserID:         "user123",
		ConversationID: "chat_abc",
		Message:        "ここまでの議論を踏まえて次の構成を検討してください",
	})
	require.NoError(t, err)
	f.tasks.Wait()

	assert.Equal(t, "会話の要約", sess.State.ConversationSummary)
	assert.NotNil(t, sess.State.LastSummaryUpdate)
}

func TestHandleUserTurn_NoSummaryForShortConversations(t *testing.T) {
	f := newFixture(nil)
	history := dialogHistory(4)

	sess := testSession(domain.AgentDefault)
	f.wireSession(sess, history)

	_, err := f.orch.HandleUserTurn(context.Background(), domain.TurnRequest{
		UserID:         "user123",
		ConversationID: "chat_abc",
		Message:        "ここまでの議論を踏まえて次の構成を検討してください",
	})
	require.NoError(t, err)
	f.tasks.Wait()

	assert.Empty(t, sess.State.ConversationSummary)
}

func TestHandleUserTurn_InferenceFailure(t *testing.T) {
	f := newFixture(nil)
	f.gen.replyErr = assert.AnError

	sess := testSession(domain.AgentDefault)
	f.wireSession(sess, []domain.Message{})

	_, err := f.orch.HandleUserTurn(context.Background(), domain.TurnRequest{
		UserID:         "user123",
		ConversationID: "chat_abc",
		Message:        "AWSの構成についてもう少し詳しく教えてください",
	})
	f.tasks.Wait()

	assert.ErrorIs(t, err, domain.ErrInference)

	// The user message survives the failed turn.
	appended := f.messages.Appended()
	require.Len(t, appended, 1)
	assert.Equal(t, domain.RoleUser, appended[0].Role)
}
