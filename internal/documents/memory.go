package documents

import (
	"context"
	"sort"
	"sync"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// MemoryRepository is an in-process Repository for tests and the
// mock-everything profile.
type MemoryRepository struct {
	mu   sync.Mutex
	docs map[string]domain.Document
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: map[string]domain.Document{}}
}

func (m *MemoryRepository) Initialize(ctx context.Context) error { return nil }

func (m *MemoryRepository) Save(ctx context.Context, doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return domain.Document{}, ragerrors.NotFound("document not found", nil)
	}
	return doc, nil
}

func (m *MemoryRepository) List(ctx context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *MemoryRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string, chunkCount, vectorCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ragerrors.NotFound("document not found", nil)
	}
	doc.Status = status
	doc.ErrorMessage = errMessage
	doc.ChunkCount = chunkCount
	doc.VectorCount = vectorCount
	m.docs[id] = doc
	return nil
}

func (m *MemoryRepository) Cleanup(ctx context.Context) error { return nil }
