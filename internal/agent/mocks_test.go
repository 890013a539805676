package agent

import (
	"context"

	"github.com/aidevlab/aidev-chat/internal/llm"
	"github.com/stretchr/testify/mock"
)

// MockGenerator mocks the llm.Generator interface
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, tier llm.Tier, req llm.Request) (string, error) {
	args := m.Called(ctx, tier, req)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) GenerateWith(ctx context.Context, provider string, tier llm.Tier, req llm.Request) (string, error) {
	args := m.Called(ctx, provider, tier, req)
	return args.String(0), args.Error(1)
}
