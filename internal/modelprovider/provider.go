// Package modelprovider implements C1: a uniform interface over API-hosted
// and locally-hosted embedding, reranking, and generation models, plus the
// registry/factory that resolves a provider name to a constructor (§4.1).
//
// Grounded on the donor's internal/llm/provider.go (interface-over-providers
// shape) and internal/llm/providers/factory.go (provider switch/factory
// idiom), narrowed from the donor's agentic chat contract to the base
// spec's three capability verbs.
package modelprovider

import (
	"context"

	"ragcore/internal/domain"
)

// State mirrors domain.ModelState for the instance's own bookkeeping.
type State = domain.ModelState

// Embedding is the uniform interface over embedding providers (§4.1).
type Embedding interface {
	Initialize(ctx context.Context) error
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Cleanup(ctx context.Context) error
	HealthCheck(ctx context.Context) domain.HealthCheckResult
	GetMetrics() domain.Metrics
}

// Reranking is the uniform interface over reranking providers (§4.1).
type Reranking interface {
	Initialize(ctx context.Context) error
	// Rerank scores documents against query, aligned with input order;
	// higher scores mean more relevant.
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
	RerankBatch(ctx context.Context, queries []string, docsList [][]string) ([][]float64, error)
	Cleanup(ctx context.Context) error
	HealthCheck(ctx context.Context) domain.HealthCheckResult
	GetMetrics() domain.Metrics
}

// GenerationParams configures one generate() call (§4.1, §4.6 step 5).
type GenerationParams struct {
	Temperature float64
	MaxTokens   int
}

// GenerationResult is the return shape of generate() (§4.1).
type GenerationResult struct {
	Text         string
	PromptTokens int
	OutputTokens int
}

// Generation is the uniform interface over LLM providers (§4.1).
type Generation interface {
	Initialize(ctx context.Context) error
	Generate(ctx context.Context, prompt string, params GenerationParams) (GenerationResult, error)
	Cleanup(ctx context.Context) error
	HealthCheck(ctx context.Context) domain.HealthCheckResult
	GetMetrics() domain.Metrics
}
