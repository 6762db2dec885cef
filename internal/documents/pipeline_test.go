package documents

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
	dims    int
	failOn  string
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.failOn != "" {
		for _, t := range texts {
			if t == f.failOn {
				return nil, assertErr
			}
		}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

var assertErr = &fakeEmbedError{}

type fakeEmbedError struct{}

func (*fakeEmbedError) Error() string { return "embedding failed" }

func newTestPipeline(embedder Embedder) (*Pipeline, *MemoryRepository, vectorstore.Store) {
	repo := NewMemoryRepository()
	store := vectorstore.NewMemoryStore()
	pipeline := NewPipeline(PipelineOptions{
		Extractor:    NewFactory(),
		Preprocessor: NewPreprocessor(PreprocessConfig{}, zerolog.Nop()),
		Splitter:     NewRecursiveSplitter(SplitConfig{ChunkSize: 100, ChunkOverlap: 10, MinChunkSize: 10, MaxChunkSize: 300}),
		Embedder:     embedder,
		Store:        store,
		Repository:   repo,
		BatchSize:    4,
		MaxWorkers:   2,
		Logger:       zerolog.Nop(),
	})
	return pipeline, repo, store
}

func TestPipelineIngestSucceeds(t *testing.T) {
	pipeline, repo, store := newTestPipeline(fakeEmbedder{dims: 8})
	doc := domain.Document{ID: "doc-1", Filename: "notes.txt", Status: domain.DocumentPending}

	err := pipeline.Ingest(context.Background(), doc, []byte("Some plain text content for the pipeline to chunk and embed."))
	require.NoError(t, err)

	saved, err := repo.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentReady, saved.Status)
	assert.Greater(t, saved.ChunkCount, 0)
	assert.Equal(t, saved.ChunkCount, saved.VectorCount)

	info, err := store.GetCollectionInfo(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, saved.VectorCount, info.Count)
}

func TestPipelineIngestRollsBackOnEmbeddingFailure(t *testing.T) {
	text := "Some plain text content for the pipeline to chunk and embed."
	pipeline, repo, store := newTestPipeline(fakeEmbedder{dims: 8, failOn: text})
	doc := domain.Document{ID: "doc-2", Filename: "notes.txt", Status: domain.DocumentPending}

	err := pipeline.Ingest(context.Background(), doc, []byte(text))
	require.Error(t, err)

	saved, getErr := repo.Get(context.Background(), "doc-2")
	require.NoError(t, getErr)
	assert.Equal(t, domain.DocumentError, saved.Status)
	assert.NotEmpty(t, saved.ErrorMessage)

	info, err := store.GetCollectionInfo(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, info.Count)
}

func TestPipelineIngestFailsOnEmptyFile(t *testing.T) {
	pipeline, repo, _ := newTestPipeline(fakeEmbedder{dims: 8})
	doc := domain.Document{ID: "doc-3", Filename: "empty.txt", Status: domain.DocumentPending}

	err := pipeline.Ingest(context.Background(), doc, nil)
	require.Error(t, err)

	saved, getErr := repo.Get(context.Background(), "doc-3")
	require.NoError(t, getErr)
	assert.Equal(t, domain.DocumentError, saved.Status)
}

func TestPipelineReingestDoesNotAccumulateStaleVectors(t *testing.T) {
	pipeline, repo, store := newTestPipeline(fakeEmbedder{dims: 8})
	doc := domain.Document{ID: "doc-4", Filename: "notes.txt", Status: domain.DocumentPending}
	text := []byte("Some plain text content for the pipeline to chunk and embed.")

	require.NoError(t, pipeline.Ingest(context.Background(), doc, text))
	first, err := repo.Get(context.Background(), "doc-4")
	require.NoError(t, err)

	require.NoError(t, pipeline.Ingest(context.Background(), doc, text))
	second, err := repo.Get(context.Background(), "doc-4")
	require.NoError(t, err)
	assert.Equal(t, first.VectorCount, second.VectorCount)

	info, err := store.GetCollectionInfo(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, second.VectorCount, info.Count)
}

func TestPipelineDeleteDocumentRemovesVectors(t *testing.T) {
	pipeline, repo, store := newTestPipeline(fakeEmbedder{dims: 8})
	doc := domain.Document{ID: "doc-5", Filename: "notes.txt", Status: domain.DocumentPending}

	require.NoError(t, pipeline.Ingest(context.Background(), doc, []byte("Some plain text content for the pipeline to chunk and embed.")))

	require.NoError(t, pipeline.DeleteDocument(context.Background(), "doc-5"))

	_, err := repo.Get(context.Background(), "doc-5")
	assert.Error(t, err)

	info, err := store.GetCollectionInfo(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, info.Count)
}

type describingFakeEmbedder struct {
	fakeEmbedder
}

func (describingFakeEmbedder) Describe(ctx context.Context) (provider, model string, dimensions int) {
	return "mock", "mock-embed-v1", 8
}

func TestPipelineThreadsEmbeddingDescriptorIntoVectorMetadata(t *testing.T) {
	repo := NewMemoryRepository()
	store := &recordingStore{MemoryStore: vectorstore.NewMemoryStore()}
	pipeline := NewPipeline(PipelineOptions{
		Extractor:    NewFactory(),
		Preprocessor: NewPreprocessor(PreprocessConfig{}, zerolog.Nop()),
		Splitter:     NewRecursiveSplitter(SplitConfig{ChunkSize: 100, ChunkOverlap: 10, MinChunkSize: 10, MaxChunkSize: 300}),
		Embedder:     describingFakeEmbedder{fakeEmbedder{dims: 8}},
		Store:        store,
		Repository:   repo,
		BatchSize:    4,
		MaxWorkers:   2,
		Logger:       zerolog.Nop(),
	})
	doc := domain.Document{ID: "doc-6", Filename: "notes.txt", Status: domain.DocumentPending}

	require.NoError(t, pipeline.Ingest(context.Background(), doc, []byte("Some plain text content for the pipeline to chunk and embed.")))

	require.NotEmpty(t, store.added)
	for _, rec := range store.added {
		assert.Equal(t, "mock", rec.Metadata["embedding_provider"])
		assert.Equal(t, "mock-embed-v1", rec.Metadata["embedding_model"])
		assert.Equal(t, 8, rec.Metadata["embedding_dimensions"])
	}
}

// recordingStore wraps vectorstore.MemoryStore to capture every record
// AddVectors receives, so tests can assert on record metadata directly.
type recordingStore struct {
	*vectorstore.MemoryStore
	added []domain.VectorRecord
}

func (r *recordingStore) AddVectors(ctx context.Context, records []domain.VectorRecord) error {
	r.added = append(r.added, records...)
	return r.MemoryStore.AddVectors(ctx, records)
}
