package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

func TestMemoryStoreAddAndSearch(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Initialize(context.Background()))

	err := store.AddVectors(context.Background(), []domain.VectorRecord{
		{ChunkID: "c1", DocumentID: "d1", Content: "golang concurrency", Embedding: []float32{1, 0, 0}},
		{ChunkID: "c2", DocumentID: "d1", Content: "python async", Embedding: []float32{0, 1, 0}},
	})
	require.NoError(t, err)

	results, err := store.SearchSimilar(context.Background(), []float32{1, 0, 0}, 10, 0.0, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Greater(t, results[0].SimilarityScore, results[1].SimilarityScore)
}

func TestMemoryStoreDimensionMismatchRejected(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.AddVectors(context.Background(), []domain.VectorRecord{
		{ChunkID: "c1", DocumentID: "d1", Embedding: []float32{1, 0, 0}},
	}))
	err := store.AddVectors(context.Background(), []domain.VectorRecord{
		{ChunkID: "c2", DocumentID: "d1", Embedding: []float32{1, 0}},
	})
	require.Error(t, err)
	assert.True(t, ragerrors.Is(err, ragerrors.KindRetrieval))
}

func TestMemoryStoreDeleteByDocumentIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.AddVectors(context.Background(), []domain.VectorRecord{
		{ChunkID: "c1", DocumentID: "d1", Embedding: []float32{1, 0}},
		{ChunkID: "c2", DocumentID: "d2", Embedding: []float32{0, 1}},
	}))
	require.NoError(t, store.DeleteByDocument(context.Background(), "d1"))
	require.NoError(t, store.DeleteByDocument(context.Background(), "d1")) // idempotent

	info, err := store.GetCollectionInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Count)
}

func TestMemoryStoreFiltersByMetadata(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.AddVectors(context.Background(), []domain.VectorRecord{
		{ChunkID: "c1", DocumentID: "d1", Embedding: []float32{1, 0}, Metadata: map[string]any{"section": "intro"}},
		{ChunkID: "c2", DocumentID: "d1", Embedding: []float32{1, 0}, Metadata: map[string]any{"section": "appendix"}},
	}))

	results, err := store.SearchSimilar(context.Background(), []float32{1, 0}, 10, 0.0, domain.VectorFilter{"section": "intro"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ChunkID)
}

func TestMemoryStoreTopKTruncates(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.AddVectors(context.Background(), []domain.VectorRecord{
		{ChunkID: "c1", DocumentID: "d1", Embedding: []float32{1, 0}},
		{ChunkID: "c2", DocumentID: "d1", Embedding: []float32{0.9, 0.1}},
		{ChunkID: "c3", DocumentID: "d1", Embedding: []float32{0.1, 0.9}},
	}))
	results, err := store.SearchSimilar(context.Background(), []float32{1, 0}, 2, 0.0, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
