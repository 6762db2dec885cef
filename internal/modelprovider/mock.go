package modelprovider

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// MockEmbedding produces deterministic, hash-derived vectors with no
// network calls. It is the one eagerly-registered provider (§4.1 "eager
// registration of the mock provider"), used for tests and as the
// enable_fallback default target (source's RerankingConfig.fallback_provider
// default "mock").
type MockEmbedding struct {
	lc         *lifecycle
	dimensions int
	metrics    metricsCounter
}

func NewMockEmbedding(spec Spec) (Embedding, error) {
	return &MockEmbedding{
		lc:         newLifecycle(spec.MaxConcurrentRequests, spec.RequestIntervalMS, spec.RetryAttempts),
		dimensions: 64,
	}, nil
}

func (m *MockEmbedding) Initialize(ctx context.Context) error {
	return m.lc.initOnce(func() error { return nil })
}

func deterministicVector(text string, dim int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed>>11)) / float64(1<<52)
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func (m *MockEmbedding) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := m.lc.checkReady(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ragerrors.Validation("embed_query text must not be empty", nil)
	}
	start := time.Now()
	vec := deterministicVector(text, m.dimensions)
	m.metrics.recordSuccess(1, time.Since(start))
	return vec, nil
}

func (m *MockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := m.lc.checkReady(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, ragerrors.Validation("embed_batch requires at least one document", nil)
	}
	start := time.Now()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = deterministicVector(t, m.dimensions)
	}
	m.metrics.recordSuccess(len(texts), time.Since(start))
	return out, nil
}

func (m *MockEmbedding) Cleanup(ctx context.Context) error {
	m.lc.cleanup()
	return nil
}

func (m *MockEmbedding) HealthCheck(ctx context.Context) domain.HealthCheckResult {
	return domain.HealthCheckResult{
		Status:      domain.HealthHealthy,
		Dimensions:  m.dimensions,
		ModelLoaded: m.lc.currentState() == domain.ModelLoaded,
	}
}

func (m *MockEmbedding) GetMetrics() domain.Metrics { return m.metrics.snapshot() }

// MockReranking scores (query, document) pairs by token-overlap, giving a
// usable, deterministic stand-in reranker with no model dependency.
type MockReranking struct {
	lc      *lifecycle
	metrics metricsCounter
}

func NewMockReranking(spec Spec) (Reranking, error) {
	return &MockReranking{lc: newLifecycle(spec.MaxConcurrentRequests, spec.RequestIntervalMS, spec.RetryAttempts)}, nil
}

func (m *MockReranking) Initialize(ctx context.Context) error {
	return m.lc.initOnce(func() error { return nil })
}

func tokenOverlapScore(query, doc string) float64 {
	qTokens := strings.Fields(strings.ToLower(query))
	if len(qTokens) == 0 {
		return 0
	}
	docLower := strings.ToLower(doc)
	matched := 0
	for _, tok := range qTokens {
		if strings.Contains(docLower, tok) {
			matched++
		}
	}
	return float64(matched) / float64(len(qTokens))
}

func (m *MockReranking) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if err := m.lc.checkReady(); err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		return []float64{}, nil
	}
	start := time.Now()
	scores := make([]float64, len(documents))
	for i, d := range documents {
		scores[i] = tokenOverlapScore(query, d)
	}
	m.metrics.recordSuccess(len(documents), time.Since(start))
	return scores, nil
}

func (m *MockReranking) RerankBatch(ctx context.Context, queries []string, docsList [][]string) ([][]float64, error) {
	out := make([][]float64, len(queries))
	for i, q := range queries {
		scores, err := m.Rerank(ctx, q, docsList[i])
		if err != nil {
			return nil, err
		}
		out[i] = scores
	}
	return out, nil
}

func (m *MockReranking) Cleanup(ctx context.Context) error {
	m.lc.cleanup()
	return nil
}

func (m *MockReranking) HealthCheck(ctx context.Context) domain.HealthCheckResult {
	return domain.HealthCheckResult{Status: domain.HealthHealthy, ModelLoaded: m.lc.currentState() == domain.ModelLoaded}
}

func (m *MockReranking) GetMetrics() domain.Metrics { return m.metrics.snapshot() }

// MockGeneration returns a deterministic templated answer, used as the
// fallback_provider default and in tests.
type MockGeneration struct {
	lc      *lifecycle
	metrics metricsCounter
}

func NewMockGeneration(spec Spec) (Generation, error) {
	return &MockGeneration{lc: newLifecycle(spec.MaxConcurrentRequests, spec.RequestIntervalMS, spec.RetryAttempts)}, nil
}

func (m *MockGeneration) Initialize(ctx context.Context) error {
	return m.lc.initOnce(func() error { return nil })
}

func (m *MockGeneration) Generate(ctx context.Context, prompt string, params GenerationParams) (GenerationResult, error) {
	if err := m.lc.checkReady(); err != nil {
		return GenerationResult{}, err
	}
	if strings.TrimSpace(prompt) == "" {
		return GenerationResult{}, ragerrors.Validation("generate prompt must not be empty", nil)
	}
	start := time.Now()
	text := "[mock answer based on provided context]"
	m.metrics.recordSuccess(len(strings.Fields(prompt))+len(strings.Fields(text)), time.Since(start))
	return GenerationResult{Text: text, PromptTokens: len(strings.Fields(prompt)), OutputTokens: len(strings.Fields(text))}, nil
}

func (m *MockGeneration) Cleanup(ctx context.Context) error {
	m.lc.cleanup()
	return nil
}

func (m *MockGeneration) HealthCheck(ctx context.Context) domain.HealthCheckResult {
	return domain.HealthCheckResult{Status: domain.HealthHealthy, ModelLoaded: m.lc.currentState() == domain.ModelLoaded}
}

func (m *MockGeneration) GetMetrics() domain.Metrics { return m.metrics.snapshot() }
