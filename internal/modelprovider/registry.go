package modelprovider

import (
	"fmt"
	"strings"
	"sync"

	"ragcore/internal/ragerrors"
)

// Spec is the configuration handed to a provider constructor (§4.1). It
// generalizes domain.ModelConfig.Config plus the knobs shared by every
// capability (concurrency cap, request spacing, retries, timeouts).
type Spec struct {
	Name      string
	Provider  string
	ModelName string
	APIKey    string
	BaseURL   string

	MaxConcurrentRequests int
	RequestIntervalMS     int
	RetryAttempts         int
	MaxLength             int
	BatchSize             int
	TimeoutSeconds         int

	EnableFallback   bool
	FallbackProvider string
}

// EmbeddingConstructor builds an Embedding instance from a Spec.
type EmbeddingConstructor func(Spec) (Embedding, error)

// RerankingConstructor builds a Reranking instance from a Spec.
type RerankingConstructor func(Spec) (Reranking, error)

// GenerationConstructor builds a Generation instance from a Spec.
type GenerationConstructor func(Spec) (Generation, error)

// Registry maps provider names to constructors for all three capabilities
// (§4.1 "Registry and factory"). mock is registered eagerly; remote/local
// providers are registered lazily on first use via RegisterLazy* so a
// provider whose SDK is not wired in never pays import-time cost.
type Registry struct {
	mu sync.RWMutex

	embedding  map[string]EmbeddingConstructor
	reranking  map[string]RerankingConstructor
	generation map[string]GenerationConstructor

	lazyEmbedding  map[string]func() EmbeddingConstructor
	lazyReranking  map[string]func() RerankingConstructor
	lazyGeneration map[string]func() GenerationConstructor
}

// NewRegistry returns a Registry with the mock provider eagerly registered
// for every capability.
func NewRegistry() *Registry {
	r := &Registry{
		embedding:      map[string]EmbeddingConstructor{},
		reranking:      map[string]RerankingConstructor{},
		generation:     map[string]GenerationConstructor{},
		lazyEmbedding:  map[string]func() EmbeddingConstructor{},
		lazyReranking:  map[string]func() RerankingConstructor{},
		lazyGeneration: map[string]func() GenerationConstructor{},
	}
	r.RegisterEmbedding("mock", NewMockEmbedding)
	r.RegisterReranking("mock", NewMockReranking)
	r.RegisterGeneration("mock", NewMockGeneration)

	registerOpenAICompatibleProviders(r)
	registerAnthropicProvider(r)
	registerGeminiProvider(r)
	registerLocalProviders(r)
	return r
}

func (r *Registry) RegisterEmbedding(provider string, ctor EmbeddingConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedding[normalizeProvider(provider)] = ctor
}

func (r *Registry) RegisterReranking(provider string, ctor RerankingConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reranking[normalizeProvider(provider)] = ctor
}

func (r *Registry) RegisterGeneration(provider string, ctor GenerationConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation[normalizeProvider(provider)] = ctor
}

// RegisterLazyEmbedding/Reranking/Generation register a constructor factory
// that is only invoked the first time the provider name is resolved,
// matching §4.1's "lazy (on-first-use) registration of remote providers".
func (r *Registry) RegisterLazyEmbedding(provider string, factory func() EmbeddingConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lazyEmbedding[normalizeProvider(provider)] = factory
}

func (r *Registry) RegisterLazyReranking(provider string, factory func() RerankingConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lazyReranking[normalizeProvider(provider)] = factory
}

func (r *Registry) RegisterLazyGeneration(provider string, factory func() GenerationConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lazyGeneration[normalizeProvider(provider)] = factory
}

func normalizeProvider(p string) string { return strings.ToLower(strings.TrimSpace(p)) }

func (r *Registry) resolveEmbedding(provider string) (EmbeddingConstructor, error) {
	provider = normalizeProvider(provider)
	r.mu.RLock()
	ctor, ok := r.embedding[provider]
	r.mu.RUnlock()
	if ok {
		return ctor, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctor, ok := r.embedding[provider]; ok {
		return ctor, nil
	}
	if factory, ok := r.lazyEmbedding[provider]; ok {
		ctor := factory()
		r.embedding[provider] = ctor
		return ctor, nil
	}
	return nil, ragerrors.UnsupportedProvider(fmt.Sprintf("embedding provider %q is not registered", provider), nil)
}

func (r *Registry) resolveReranking(provider string) (RerankingConstructor, error) {
	provider = normalizeProvider(provider)
	r.mu.RLock()
	ctor, ok := r.reranking[provider]
	r.mu.RUnlock()
	if ok {
		return ctor, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctor, ok := r.reranking[provider]; ok {
		return ctor, nil
	}
	if factory, ok := r.lazyReranking[provider]; ok {
		ctor := factory()
		r.reranking[provider] = ctor
		return ctor, nil
	}
	return nil, ragerrors.UnsupportedProvider(fmt.Sprintf("reranking provider %q is not registered", provider), nil)
}

func (r *Registry) resolveGeneration(provider string) (GenerationConstructor, error) {
	provider = normalizeProvider(provider)
	r.mu.RLock()
	ctor, ok := r.generation[provider]
	r.mu.RUnlock()
	if ok {
		return ctor, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctor, ok := r.generation[provider]; ok {
		return ctor, nil
	}
	if factory, ok := r.lazyGeneration[provider]; ok {
		ctor := factory()
		r.generation[provider] = ctor
		return ctor, nil
	}
	return nil, ragerrors.UnsupportedProvider(fmt.Sprintf("generation provider %q is not registered", provider), nil)
}
