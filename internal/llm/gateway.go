package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Tier selects between the fast/cheap and the capable model tier.
type Tier string

const (
	TierFast    Tier = "fast"
	TierCapable Tier = "capable"
)

// TierModels maps the two tiers to concrete model names for one provider.
type TierModels struct {
	Fast    string
	Capable string
}

// Generator is the inference boundary consumed by the core. It hides
// provider and model selection behind a tier.
type Generator interface {
	Generate(ctx context.Context, tier Tier, req Request) (string, error)
	// GenerateWith targets a specific provider (per-user preference);
	// empty name falls back to the default provider.
	GenerateWith(ctx context.Context, provider string, tier Tier, req Request) (string, error)
}

// Gateway routes generation requests to registered providers.
type Gateway struct {
	providers       map[string]Provider
	models          map[string]TierModels
	defaultProvider string
	mu              sync.RWMutex
}

// NewGateway creates a gateway with the given default provider name.
func NewGateway(defaultProvider string) *Gateway {
	return &Gateway{
		providers:       make(map[string]Provider),
		models:          make(map[string]TierModels),
		defaultProvider: defaultProvider,
	}
}

// Register adds a provider and its tier-to-model mapping.
func (g *Gateway) Register(p Provider, models TierModels) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.providers[p.Name()] = p
	g.models[p.Name()] = models
}

// Generate invokes the default provider at the given tier.
func (g *Gateway) Generate(ctx context.Context, tier Tier, req Request) (string, error) {
	return g.GenerateWith(ctx, "", tier, req)
}

// GenerateWith invokes the named provider at the given tier. Unknown or
// unconfigured provider names fall back to the default provider.
func (g *Gateway) GenerateWith(ctx context.Context, provider string, tier Tier, req Request) (string, error) {
	p, model, err := g.resolve(provider, tier)
	if err != nil {
		return "", err
	}

	resp, err := p.Chat(ctx, req, model)
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", p.Name(), err)
	}

	log.Debug().
		Str("provider", p.Name()).
		Str("model", resp.Model).
		Int("tokens_used", resp.TokensUsed).
		Int64("latency_ms", resp.LatencyMs).
		Msg("generation completed")

	return resp.Text, nil
}

func (g *Gateway) resolve(name string, tier Tier) (Provider, string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if name == "" {
		name = g.defaultProvider
	}
	p, ok := g.providers[name]
	if !ok || !p.IsConfigured() {
		p, ok = g.providers[g.defaultProvider]
		if !ok {
			return nil, "", fmt.Errorf("provider not found: %s", name)
		}
		name = g.defaultProvider
	}
	if !p.IsConfigured() {
		return nil, "", fmt.Errorf("provider not configured: %s", name)
	}

	models := g.models[name]
	model := models.Capable
	if tier == TierFast {
		model = models.Fast
	}
	return p, model, nil
}

// ListProviders returns the names of configured providers.
func (g *Gateway) ListProviders() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var names []string
	for name, p := range g.providers {
		if p.IsConfigured() {
			names = append(names, name)
		}
	}
	return names
}
