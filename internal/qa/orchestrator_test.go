package qa

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/config"
	"ragcore/internal/domain"
	"ragcore/internal/history"
	"ragcore/internal/modelprovider"
)

type fakeRetriever struct {
	results []domain.SearchResult
	err     error
}

func (f fakeRetriever) SearchWithConfig(ctx context.Context, query string, cfg domain.RetrievalConfig) ([]domain.SearchResult, error) {
	return f.results, f.err
}

type fakeGenerator struct {
	text string
	err  error
}

func (f fakeGenerator) Generate(ctx context.Context, prompt string, params modelprovider.GenerationParams) (modelprovider.GenerationResult, error) {
	if f.err != nil {
		return modelprovider.GenerationResult{}, f.err
	}
	return modelprovider.GenerationResult{Text: f.text, PromptTokens: 10, OutputTokens: 5}, nil
}

type fakeGenError struct{}

func (*fakeGenError) Error() string { return "generation failed" }

type fakeConfigSource struct {
	cfg config.AppConfig
}

func (f fakeConfigSource) Current() config.AppConfig { return f.cfg }

func testConfig() config.AppConfig {
	cfg := config.AppConfig{}
	cfg.LLM.Temperature = 0.2
	cfg.LLM.MaxTokens = 256
	cfg.LLM.TimeoutSec = 5
	cfg.LLM.MaxContextLength = 4000
	cfg.Retrieval = domain.RetrievalConfig{TopK: 5, SearchMode: domain.SearchSemantic}
	return cfg
}

func sampleResults() []domain.SearchResult {
	return []domain.SearchResult{
		{ChunkID: "c1", DocumentID: "doc-1", Content: "Paris is the capital of France.", SimilarityScore: 0.9,
			Metadata: map[string]any{"document_name": "geo.txt"}},
		{ChunkID: "c2", DocumentID: "doc-2", Content: "France is in Western Europe.", SimilarityScore: 0.8,
			Metadata: map[string]any{"document_name": "geo2.txt"}},
	}
}

func TestAnswerQuestionCreatesSessionWhenAbsent(t *testing.T) {
	hist := history.NewMemoryStore()
	retriever := fakeRetriever{results: sampleResults()}
	gen := func(ctx context.Context) (Generator, error) { return fakeGenerator{text: "Paris is the capital of France."}, nil }

	orch := New(hist, retriever, gen, fakeConfigSource{cfg: testConfig()}, WithLogger(zerolog.Nop()))

	resp, err := orch.AnswerQuestion(context.Background(), "What is the capital of France?", "", "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "Paris is the capital of France.", resp.Answer)
	assert.Len(t, resp.Sources, 2)
	assert.Greater(t, resp.ConfidenceScore, 0.0)

	turns, err := hist.GetSessionHistory(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, resp.Answer, turns[0].Answer)
}

func TestAnswerQuestionReusesProvidedSession(t *testing.T) {
	hist := history.NewMemoryStore()
	session, err := hist.CreateSession(context.Background(), "user-1", "")
	require.NoError(t, err)

	retriever := fakeRetriever{results: sampleResults()}
	gen := func(ctx context.Context) (Generator, error) { return fakeGenerator{text: "answer"}, nil }
	orch := New(hist, retriever, gen, fakeConfigSource{cfg: testConfig()})

	resp, err := orch.AnswerQuestion(context.Background(), "question", session.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, resp.SessionID)
}

func TestAnswerQuestionDegradesOnGenerationError(t *testing.T) {
	hist := history.NewMemoryStore()
	retriever := fakeRetriever{results: sampleResults()}
	gen := func(ctx context.Context) (Generator, error) {
		return fakeGenerator{err: &fakeGenError{}}, nil
	}
	orch := New(hist, retriever, gen, fakeConfigSource{cfg: testConfig()})

	resp, err := orch.AnswerQuestion(context.Background(), "question", "", "")
	require.NoError(t, err)
	assert.Equal(t, degradedAnswer, resp.Answer)
	assert.Equal(t, 0.0, resp.ConfidenceScore)
	assert.Len(t, resp.Sources, 2)
}

func TestAnswerQuestionDegradesWhenNoActiveModel(t *testing.T) {
	hist := history.NewMemoryStore()
	retriever := fakeRetriever{results: sampleResults()}
	gen := func(ctx context.Context) (Generator, error) { return nil, &fakeGenError{} }
	orch := New(hist, retriever, gen, fakeConfigSource{cfg: testConfig()})

	resp, err := orch.AnswerQuestion(context.Background(), "question", "", "")
	require.NoError(t, err)
	assert.Equal(t, degradedAnswer, resp.Answer)
}

func TestAssembleContextPrefixesAndTruncates(t *testing.T) {
	results := sampleResults()
	ctx := assembleContext(results, 40)
	assert.Contains(t, ctx, "[Source 1: geo.txt]")
	assert.NotContains(t, ctx, "Source 2")
}

func TestConfidenceScoreWeightsSourcesAndLength(t *testing.T) {
	results := sampleResults()
	score := confidenceScore(results, len(results), "a reasonably long answer for testing purposes", DefaultConfidenceWeights)
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestAnswerQuestionRetrievalErrorPropagates(t *testing.T) {
	hist := history.NewMemoryStore()
	retriever := fakeRetriever{err: &fakeGenError{}}
	gen := func(ctx context.Context) (Generator, error) { return fakeGenerator{text: "x"}, nil }
	orch := New(hist, retriever, gen, fakeConfigSource{cfg: testConfig()}, WithClock(func() time.Time { return time.Unix(0, 0) }))

	_, err := orch.AnswerQuestion(context.Background(), "question", "", "")
	require.Error(t, err)
}
