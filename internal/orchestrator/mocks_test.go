package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aidevlab/aidev-chat/internal/bus"
	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/aidevlab/aidev-chat/internal/llm"
	"github.com/stretchr/testify/mock"
)

// MockSessionRepository mocks the SessionRepository interface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) FindByConversation(ctx context.Context, userID, conversationID string) (*domain.Session, error) {
	args := m.Called(ctx, userID, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Touch(ctx context.Context, sessionID string, agent domain.AgentType, at time.Time) error {
	args := m.Called(ctx, sessionID, agent, at)
	return args.Error(0)
}

// MockMessageRepository mocks the MessageRepository interface. Appended
// messages are additionally collected for inspection.
type MockMessageRepository struct {
	mock.Mock

	mu       sync.Mutex
	appended []domain.Message
}

func (m *MockMessageRepository) Append(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.appended = append(m.appended, *message)
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *MockMessageRepository) ListByConversation(ctx context.Context, userID, conversationID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, userID, conversationID, limit)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) Recent(ctx context.Context, userID, conversationID string, n int) ([]domain.Message, error) {
	args := m.Called(ctx, userID, conversationID, n)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) Appended() []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Message, len(m.appended))
	copy(out, m.appended)
	return out
}

// MockProfileRepository mocks the ProfileRepository interface
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *domain.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

// MockBus mocks the Bus interface
type MockBus struct {
	mock.Mock
}

func (m *MockBus) Send(ctx context.Context, env *domain.AgentEnvelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

func (m *MockBus) Consume(ctx context.Context, h bus.Handler) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

// stubDeduper reports a fixed dedup result.
type stubDeduper struct {
	seen bool
	err  error
}

func (d *stubDeduper) Seen(ctx context.Context, token string) (bool, error) {
	return d.seen, d.err
}

// scriptedGenerator dispatches on the system-prompt header of each inference
// call, so one turn's routing, extraction, collaboration and reply calls can
// be scripted independently.
type scriptedGenerator struct {
	routing       string
	extraction    string
	collaboration string
	summary       string
	pricing       string
	handoff       string
	reply         string
	replyErr      error

	mu            sync.Mutex
	replyProvider string
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{
		routing:       "default",
		extraction:    `{"entities": {}, "intent": "general_query", "topics": []}`,
		collaboration: `{"needed": false}`,
		summary:       "会話の要約",
		pricing:       "小規模: 約$30/月",
		handoff:       "切り替えのご案内です",
		reply:         "アシスタントの応答です",
	}
}

func (g *scriptedGenerator) Generate(ctx context.Context, tier llm.Tier, req llm.Request) (string, error) {
	return g.GenerateWith(ctx, "", tier, req)
}

func (g *scriptedGenerator) GenerateWith(ctx context.Context, provider string, tier llm.Tier, req llm.Request) (string, error) {
	switch {
	case strings.Contains(req.System, "振り分けエージェント"):
		return g.routing, nil
	case strings.Contains(req.System, "コンテキスト分析エージェント"):
		return g.extraction, nil
	case strings.Contains(req.System, "連携判断エージェント"):
		return g.collaboration, nil
	case strings.Contains(req.System, "会話要約エージェント"):
		return g.summary, nil
	case strings.Contains(req.System, "リソース分析のエキスパート"),
		strings.Contains(req.System, "料金計算の専門家"):
		return g.pricing, nil
	case strings.Contains(req.System, "切り替え理由"):
		return g.handoff, nil
	}

	g.mu.Lock()
	g.replyProvider = provider
	g.mu.Unlock()
	return g.reply, g.replyErr
}

func (g *scriptedGenerator) ReplyProvider() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.replyProvider
}
