package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

// Router dispatches requests to the provider named in the request.
type Router struct {
	mu        sync.RWMutex
	providers map[string]Provider
	fallback  Provider
}

// NewRouter creates a router over providers.
func NewRouter(providers ...Provider) *Router {
	r := &Router{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// NewMockRouter answers every provider name with one mock.
func NewMockRouter(mock *MockProvider) *Router {
	r := NewRouter(mock)
	r.fallback = mock
	return r
}

// Options configures the live providers.
type Options struct {
	Mock            bool
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	AnthropicTokens int
}

// NewFromOptions builds a router with every provider that has credentials.
func NewFromOptions(opts Options) *Router {
	if opts.Mock {
		return NewMockRouter(NewMockProvider())
	}
	r := NewRouter()
	if opts.OpenAIAPIKey != "" {
		r.Register(NewOpenAIProvider(opts.OpenAIAPIKey, opts.OpenAIBaseURL))
	}
	if opts.AnthropicAPIKey != "" {
		r.Register(NewAnthropicProvider(opts.AnthropicAPIKey, opts.AnthropicTokens))
	}
	return r
}

// Register adds or replaces a provider.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Name implements Provider.
func (r *Router) Name() string { return "router" }

// Generate implements Provider.
func (r *Router) Generate(ctx context.Context, req *GenerateRequest) (CompletionStream, error) {
	r.mu.RLock()
	p, ok := r.providers[req.Provider]
	if !ok {
		p = r.fallback
	}
	r.mu.RUnlock()
	if p == nil {
		return nil, &domain.UpstreamError{Provider: req.Provider, Err: fmt.Errorf("provider not configured")}
	}
	return p.Generate(ctx, req)
}

var _ Provider = (*Router)(nil)
