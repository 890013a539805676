package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeProvider records the model it was invoked with.
type fakeProvider struct {
	name       string
	configured bool
	lastModel  string
	reply      string
	err        error
}

func (p *fakeProvider) Name() string       { return p.name }
func (p *fakeProvider) IsConfigured() bool { return p.configured }

func (p *fakeProvider) Chat(ctx context.Context, req Request, model string) (*Response, error) {
	p.lastModel = model
	if p.err != nil {
		return nil, p.err
	}
	return &Response{Text: p.reply, Model: model}, nil
}

func TestGateway_TierSelectsModel(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{name: "anthropic", configured: true, reply: "ok"}

	g := NewGateway("anthropic")
	g.Register(provider, TierModels{Fast: "claude-3-haiku", Capable: "claude-3-sonnet"})

	_, err := g.Generate(ctx, TierFast, Request{})
	assert.NoError(t, err)
	assert.Equal(t, "claude-3-haiku", provider.lastModel)

	_, err = g.Generate(ctx, TierCapable, Request{})
	assert.NoError(t, err)
	assert.Equal(t, "claude-3-sonnet", provider.lastModel)
}

func TestGateway_GenerateWith(t *testing.T) {
	ctx := context.Background()
	anthropicP := &fakeProvider{name: "anthropic", configured: true, reply: "from anthropic"}
	openaiP := &fakeProvider{name: "openai", configured: true, reply: "from openai"}

	g := NewGateway("anthropic")
	g.Register(anthropicP, TierModels{Fast: "claude-3-haiku", Capable: "claude-3-sonnet"})
	g.Register(openaiP, TierModels{Fast: "gpt-4o-mini", Capable: "gpt-4o"})

	t.Run("routes to the named provider", func(t *testing.T) {
		got, err := g.GenerateWith(ctx, "openai", TierCapable, Request{})
		assert.NoError(t, err)
		assert.Equal(t, "from openai", got)
		assert.Equal(t, "gpt-4o", openaiP.lastModel)
	})

	t.Run("unknown name falls back to the default provider", func(t *testing.T) {
		got, err := g.GenerateWith(ctx, "bedrock", TierFast, Request{})
		assert.NoError(t, err)
		assert.Equal(t, "from anthropic", got)
		assert.Equal(t, "claude-3-haiku", anthropicP.lastModel)
	})

	t.Run("unconfigured provider falls back to the default", func(t *testing.T) {
		g2 := NewGateway("anthropic")
		g2.Register(anthropicP, TierModels{Fast: "claude-3-haiku", Capable: "claude-3-sonnet"})
		g2.Register(&fakeProvider{name: "gemini", configured: false}, TierModels{})

		got, err := g2.GenerateWith(ctx, "gemini", TierCapable, Request{})
		assert.NoError(t, err)
		assert.Equal(t, "from anthropic", got)
	})

	t.Run("missing default provider is an error", func(t *testing.T) {
		g3 := NewGateway("anthropic")
		_, err := g3.Generate(ctx, TierFast, Request{})
		assert.Error(t, err)
	})

	t.Run("provider failure is wrapped with the provider name", func(t *testing.T) {
		g4 := NewGateway("anthropic")
		g4.Register(&fakeProvider{name: "anthropic", configured: true, err: assert.AnError}, TierModels{})

		_, err := g4.Generate(ctx, TierFast, Request{})
		assert.ErrorContains(t, err, "anthropic generation failed")
	})
}

func TestGateway_ListProviders(t *testing.T) {
	g := NewGateway("anthropic")
	g.Register(&fakeProvider{name: "anthropic", configured: true}, TierModels{})
	g.Register(&fakeProvider{name: "gemini", configured: false}, TierModels{})

	names := g.ListProviders()
	assert.Equal(t, []string{"anthropic"}, names)
}
