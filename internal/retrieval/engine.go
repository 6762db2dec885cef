// Package retrieval implements C5: the retrieval engine's
// search_with_config operation (§4.5) — query embedding, primary vector
// search, semantic/keyword/hybrid scoring, optional reranking, truncation,
// and per-mode statistics.
//
// Grounded on the donor's internal/rag/retrieve package: candidates.go's
// goroutine+channel fan-out pattern for parallel source queries (here
// adapted to a single vector-store primary search since this spec has no
// separate full-text store), fusion.go's weighted-alpha combination idiom
// (FuseRRF's wft/wvec split, generalized from rank-reciprocal to raw
// semantic/keyword scores per §4.5 step 3), and rerank.go's
// Reranker-interface-with-health-gated-invocation shape.
package retrieval

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"ragcore/internal/domain"
	"ragcore/internal/modelprovider"
	"ragcore/internal/ragerrors"
	"ragcore/internal/vectorstore"
)

// Embedder is the subset of modelprovider.Embedding the engine needs for
// query vectorization (§4.5 step 1), narrowed for testability the same way
// documents.Embedder narrows modelprovider.Embedding.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

var _ Embedder = modelprovider.Embedding(nil)

// Reranker is the subset of modelprovider.Reranking the engine needs (§4.5
// step 4).
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
	HealthCheck(ctx context.Context) domain.HealthCheckResult
}

var _ Reranker = modelprovider.Reranking(nil)

// ModelSource resolves the currently active embedding/reranking provider at
// call time, so a switch_active published mid-run (§5 "visible to every new
// request started after it returns") is honored by the next search without
// the engine holding a stale reference. *modelprovider.Manager implements
// this via closures at wiring time (see cmd/server); tests supply a fixed
// struct literal instead.
type ModelSource struct {
	Embed  func(ctx context.Context) (Embedder, error)
	Rerank func() (Reranker, bool)
}

// ManagerSource adapts a *modelprovider.Manager into a ModelSource.
func ManagerSource(m *modelprovider.Manager) ModelSource {
	return ModelSource{
		Embed: func(ctx context.Context) (Embedder, error) { return m.ActiveEmbedding(ctx) },
		Rerank: func() (Reranker, bool) {
			r, ok := m.ActiveReranking()
			return r, ok
		},
	}
}

// rerankBatchSize bounds how many (query, content) pairs are submitted to
// the reranker per Rerank call (§4.5 step 4 "in batches").
const rerankBatchSize = 32

// Engine implements search_with_config (§4.5).
type Engine struct {
	Models ModelSource
	Store  vectorstore.Store
	Logger zerolog.Logger

	stats *statCounters
}

// NewEngine returns a ready Engine.
func NewEngine(models ModelSource, store vectorstore.Store, logger zerolog.Logger) *Engine {
	return &Engine{Models: models, Store: store, Logger: logger, stats: newStatCounters()}
}

// Stats returns a point-in-time snapshot of the running statistics (§4.5
// step 6).
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// SearchWithConfig runs the full §4.5 pipeline for one query.
func (e *Engine) SearchWithConfig(ctx context.Context, query string, cfg domain.RetrievalConfig) ([]domain.SearchResult, error) {
	start := time.Now()

	embedder, err := e.Models.Embed(ctx)
	if err != nil {
		return nil, ragerrors.Retrieval("no active embedding model for search", err)
	}
	queryVector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, ragerrors.Retrieval("query embedding failed", err)
	}

	kOver := 1
	if cfg.EnableRerank {
		kOver = 3
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 10
	}
	primaryK := topK * kOver

	results, err := e.Store.SearchSimilar(ctx, queryVector, primaryK, cfg.SimilarityThreshold, nil)
	if err != nil {
		return nil, ragerrors.Retrieval("primary vector search failed", err)
	}

	mode := cfg.SearchMode
	if mode == "" {
		mode = domain.SearchSemantic
	}
	results = e.applyMode(query, mode, cfg.HybridAlpha, results)

	if cfg.EnableRerank {
		results = e.applyRerank(ctx, query, results)
	}

	if len(results) > topK {
		results = results[:topK]
	}

	e.stats.recordSearch(mode, time.Since(start))
	return results, nil
}

// applyMode implements §4.5 step 3: semantic leaves scores untouched;
// keyword replaces similarity_score with the normalized lexical score;
// hybrid combines both and re-sorts.
func (e *Engine) applyMode(query string, mode domain.SearchMode, alpha float64, results []domain.SearchResult) []domain.SearchResult {
	switch mode {
	case domain.SearchKeyword:
		scores := lexicalScores(query, results)
		for i := range results {
			results[i].SimilarityScore = scores[i]
		}
		sortByScore(results)
		return results
	case domain.SearchHybrid:
		a := alpha
		if a == 0 {
			a = 0.7
		}
		keyword := lexicalScores(query, results)
		for i := range results {
			semantic := normalizedSimilarity(results[i].SimilarityScore)
			results[i].SimilarityScore = a*semantic + (1-a)*keyword[i]
		}
		sortByScore(results)
		return results
	default: // domain.SearchSemantic and anything unrecognized
		return results
	}
}

// applyRerank submits candidate contents to the active reranker in batches,
// attaches metadata["rerank_score"], and re-sorts descending. A reranking
// error or an unhealthy/absent reranker is non-fatal: the un-reranked
// ordering is kept and the failure is counted (§4.5 "Failure behavior").
func (e *Engine) applyRerank(ctx context.Context, query string, results []domain.SearchResult) []domain.SearchResult {
	reranker, ok := e.Models.Rerank()
	if !ok {
		return results
	}
	if health := reranker.HealthCheck(ctx); health.Status == domain.HealthUnhealthy {
		e.Logger.Warn().Msg("active reranker is unhealthy, skipping rerank for this search")
		e.stats.recordRerank(0, true)
		return results
	}

	scores := make([]float64, len(results))
	invocations := 0
	for start := 0; start < len(results); start += rerankBatchSize {
		end := start + rerankBatchSize
		if end > len(results) {
			end = len(results)
		}
		batch := results[start:end]
		docs := make([]string, len(batch))
		for i, r := range batch {
			docs[i] = r.Content
		}
		batchScores, err := reranker.Rerank(ctx, query, docs)
		invocations++
		if err != nil {
			e.Logger.Warn().Err(err).Msg("rerank batch failed, falling back to un-reranked order")
			e.stats.recordRerank(invocations, true)
			return results
		}
		copy(scores[start:end], batchScores)
	}
	e.stats.recordRerank(invocations, false)

	for i := range results {
		if results[i].Metadata == nil {
			results[i].Metadata = map[string]any{}
		}
		results[i].Metadata["rerank_score"] = scores[i]
	}
	sort.SliceStable(results, func(i, j int) bool {
		si, _ := results[i].RerankScore()
		sj, _ := results[j].RerankScore()
		return si > sj
	})
	return results
}

func sortByScore(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
}
