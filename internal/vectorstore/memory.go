package vectorstore

import (
	"context"
	"math"
	"sync"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// MemoryStore is an in-process Store used for tests and the mock-everything
// profile (§4.2). Dimension is fixed on first AddVectors call and enforced
// thereafter, matching the Qdrant-backed behavior it stands in for.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]domain.VectorRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]domain.VectorRecord{}}
}

func (m *MemoryStore) Initialize(ctx context.Context) error { return nil }

func (m *MemoryStore) AddVectors(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	dim := len(records[0].Embedding)
	for _, r := range records {
		if len(r.Embedding) != dim {
			return ragerrors.Retrieval("embeddings in one add_vectors batch must share dimension", nil)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimension == 0 {
		m.dimension = dim
	} else if m.dimension != dim {
		return ragerrors.Retrieval("embedding dimension does not match collection dimension", nil)
	}
	for _, r := range records {
		cp := r
		cp.Embedding = append([]float32(nil), r.Embedding...)
		m.records[r.ChunkID] = cp
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func matchesFilter(metadata map[string]any, filter domain.VectorFilter) bool {
	for k, v := range filter {
		mv, ok := metadata[k]
		if !ok {
			return false
		}
		if s, ok := mv.(string); ok {
			if s != v {
				return false
			}
			continue
		}
		return false
	}
	return true
}

func (m *MemoryStore) SearchSimilar(ctx context.Context, queryVector []float32, topK int, threshold float64, filter domain.VectorFilter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]domain.SearchResult, 0, len(m.records))
	for _, r := range m.records {
		if !matchesFilter(r.Metadata, filter) {
			continue
		}
		score := cosineSimilarity(queryVector, r.Embedding)
		if score < threshold {
			continue
		}
		results = append(results, domain.SearchResult{
			ChunkID:         r.ChunkID,
			DocumentID:      r.DocumentID,
			Content:         r.Content,
			SimilarityScore: score,
			Metadata:        r.Metadata,
		})
	}
	sortByScoreDesc(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *MemoryStore) DeleteByDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.records {
		if r.DocumentID == documentID {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *MemoryStore) GetCollectionInfo(ctx context.Context) (domain.CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.CollectionInfo{Name: "memory", Count: int64(len(m.records)), Dimension: m.dimension}, nil
}

func (m *MemoryStore) Cleanup(ctx context.Context) error { return nil }
