package retrieval

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/domain"
	"ragcore/internal/vectorstore"
)

type fakeEmbedder struct {
	dim int
}

func (f fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = 1
	}
	if text == "cats" {
		vec[0] = 5
	}
	return vec, nil
}

type fakeReranker struct {
	healthy bool
	scores  map[string]float64
	err     error
}

func (f fakeReranker) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(documents))
	for i, d := range documents {
		out[i] = f.scores[d]
	}
	return out, nil
}

func (f fakeReranker) HealthCheck(ctx context.Context) domain.HealthCheckResult {
	status := domain.HealthHealthy
	if !f.healthy {
		status = domain.HealthUnhealthy
	}
	return domain.HealthCheckResult{Status: status}
}

func seedStore(t *testing.T, store vectorstore.Store, records []domain.VectorRecord) {
	t.Helper()
	require.NoError(t, store.AddVectors(context.Background(), records))
}

func newTestEngine(embedder Embedder, reranker Reranker, hasReranker bool) (*Engine, vectorstore.Store) {
	store := vectorstore.NewMemoryStore()
	models := ModelSource{
		Embed: func(ctx context.Context) (Embedder, error) { return embedder, nil },
		Rerank: func() (Reranker, bool) {
			if !hasReranker {
				return nil, false
			}
			return reranker, true
		},
	}
	return NewEngine(models, store, zerolog.Nop()), store
}

func TestSearchWithConfigSemanticModeReturnsTopK(t *testing.T) {
	engine, store := newTestEngine(fakeEmbedder{dim: 4}, nil, false)
	seedStore(t, store, []domain.VectorRecord{
		{ChunkID: "a", DocumentID: "doc-1", Content: "about cats", Embedding: []float32{5, 1, 1, 1}},
		{ChunkID: "b", DocumentID: "doc-1", Content: "about dogs", Embedding: []float32{1, 1, 1, 1}},
	})

	results, err := engine.SearchWithConfig(context.Background(), "cats", domain.RetrievalConfig{
		TopK: 1, SearchMode: domain.SearchSemantic, SimilarityThreshold: 0,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestSearchWithConfigKeywordModeReplacesScore(t *testing.T) {
	engine, store := newTestEngine(fakeEmbedder{dim: 4}, nil, false)
	seedStore(t, store, []domain.VectorRecord{
		{ChunkID: "a", DocumentID: "doc-1", Content: "cats are great pets", Embedding: []float32{1, 1, 1, 1}},
		{ChunkID: "b", DocumentID: "doc-1", Content: "completely unrelated text", Embedding: []float32{1, 1, 1, 1}},
	})

	results, err := engine.SearchWithConfig(context.Background(), "cats", domain.RetrievalConfig{
		TopK: 2, SearchMode: domain.SearchKeyword, SimilarityThreshold: 0,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.Greater(t, results[0].SimilarityScore, results[1].SimilarityScore)
}

func TestSearchWithConfigRerankNonFatalOnError(t *testing.T) {
	reranker := fakeReranker{healthy: true, err: assertErrRerank}
	engine, store := newTestEngine(fakeEmbedder{dim: 4}, reranker, true)
	seedStore(t, store, []domain.VectorRecord{
		{ChunkID: "a", DocumentID: "doc-1", Content: "about cats", Embedding: []float32{5, 1, 1, 1}},
		{ChunkID: "b", DocumentID: "doc-1", Content: "about dogs", Embedding: []float32{1, 1, 1, 1}},
	})

	results, err := engine.SearchWithConfig(context.Background(), "cats", domain.RetrievalConfig{
		TopK: 2, SearchMode: domain.SearchSemantic, SimilarityThreshold: 0, EnableRerank: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	stats := engine.Stats()
	assert.EqualValues(t, 1, stats.RerankErrors)
}

func TestSearchWithConfigRerankReordersResults(t *testing.T) {
	reranker := fakeReranker{healthy: true, scores: map[string]float64{
		"about cats": 0.1,
		"about dogs": 0.9,
	}}
	engine, store := newTestEngine(fakeEmbedder{dim: 4}, reranker, true)
	seedStore(t, store, []domain.VectorRecord{
		{ChunkID: "a", DocumentID: "doc-1", Content: "about cats", Embedding: []float32{5, 1, 1, 1}},
		{ChunkID: "b", DocumentID: "doc-1", Content: "about dogs", Embedding: []float32{1, 1, 1, 1}},
	})

	results, err := engine.SearchWithConfig(context.Background(), "cats", domain.RetrievalConfig{
		TopK: 2, SearchMode: domain.SearchSemantic, SimilarityThreshold: 0, EnableRerank: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ChunkID)
	score, ok := results[0].RerankScore()
	require.True(t, ok)
	assert.Equal(t, 0.9, score)
}

func TestSearchWithConfigSkipsRerankWhenUnhealthy(t *testing.T) {
	reranker := fakeReranker{healthy: false}
	engine, store := newTestEngine(fakeEmbedder{dim: 4}, reranker, true)
	seedStore(t, store, []domain.VectorRecord{
		{ChunkID: "a", DocumentID: "doc-1", Content: "about cats", Embedding: []float32{5, 1, 1, 1}},
	})

	results, err := engine.SearchWithConfig(context.Background(), "cats", domain.RetrievalConfig{
		TopK: 1, SearchMode: domain.SearchSemantic, SimilarityThreshold: 0, EnableRerank: true,
	})
	require.NoError(t, err)
	_, ok := results[0].RerankScore()
	assert.False(t, ok)
}

type fakeRerankError struct{}

func (*fakeRerankError) Error() string { return "rerank failed" }

var assertErrRerank = &fakeRerankError{}
