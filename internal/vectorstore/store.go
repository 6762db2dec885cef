// Package vectorstore implements C2: an adapter over a vector index with a
// uniform add/search/delete contract (§4.2), backed primarily by Qdrant with
// an in-memory implementation for tests and the mock-everything profile.
package vectorstore

import (
	"context"
	"sort"

	"ragcore/internal/domain"
)

// Store is the uniform interface over vector index backends (§4.2).
type Store interface {
	Initialize(ctx context.Context) error

	// AddVectors atomically inserts a batch of records. All embeddings in one
	// call must share the collection's dimension, which is fixed on first
	// insert (§4.2 "add_vectors").
	AddVectors(ctx context.Context, records []domain.VectorRecord) error

	// SearchSimilar returns up to topK records scoring at or above threshold,
	// sorted by score descending (§4.2 "search_similar").
	SearchSimilar(ctx context.Context, queryVector []float32, topK int, threshold float64, filter domain.VectorFilter) ([]domain.SearchResult, error)

	// DeleteByDocument removes every vector belonging to documentID. Idempotent.
	DeleteByDocument(ctx context.Context, documentID string) error

	GetCollectionInfo(ctx context.Context) (domain.CollectionInfo, error)

	Cleanup(ctx context.Context) error
}

// sortByScoreDesc is shared by every backend whose native query path does not
// already guarantee descending order.
func sortByScoreDesc(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
}
