package documents

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ragcore/internal/domain"
	"ragcore/internal/modelprovider"
	"ragcore/internal/ragerrors"
	"ragcore/internal/vectorstore"
)

// Embedder is the subset of modelprovider.Embedding the pipeline needs,
// narrowed so tests can supply a trivial fake without building a full
// Embedding implementation.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

var _ Embedder = modelprovider.Embedding(nil)

// Describer is an optional capability an Embedder may implement to report
// which model actually produced its vectors, threaded into the Vector
// Record metadata (§3's embedding_provider/embedding_model/
// embedding_dimensions fields). Kept separate from Embedder itself so
// modelprovider.Embedding's structural match against Embedder is undisturbed.
type Describer interface {
	Describe(ctx context.Context) (provider, model string, dimensions int)
}

// PipelineOptions wires the four §4.4 stages together. Grounded on the
// donor's internal/documents/pipeline.go Options/Ingest shape, generalized
// from a single text stream to the per-document extract/preprocess/split/
// vectorize/store flow this spec requires.
type PipelineOptions struct {
	Extractor    *Factory
	Preprocessor *Preprocessor
	Splitter     *RecursiveSplitter
	Embedder     Embedder
	Store        vectorstore.Store
	Repository   Repository
	BatchSize    int
	MaxWorkers   int
	Logger       zerolog.Logger
}

// Pipeline runs C4's full per-document processing (§4.4).
type Pipeline struct {
	opt PipelineOptions
}

func NewPipeline(opt PipelineOptions) *Pipeline {
	if opt.BatchSize <= 0 {
		opt.BatchSize = 32
	}
	if opt.MaxWorkers <= 0 {
		opt.MaxWorkers = 4
	}
	return &Pipeline{opt: opt}
}

// Ingest runs extraction, preprocessing, splitting, vectorization, and
// storage for one uploaded file as a single document-level transaction: on
// any failure the document transitions to error and every vector already
// inserted for it is removed (§4.4 "Vectorization and indexing").
func (p *Pipeline) Ingest(ctx context.Context, doc domain.Document, data []byte) error {
	doc.Status = domain.DocumentProcessing
	if err := p.opt.Repository.Save(ctx, doc); err != nil {
		return err
	}
	if err := p.opt.Store.DeleteByDocument(ctx, doc.ID); err != nil {
		p.opt.Logger.Error().Err(err).Str("document_id", doc.ID).Msg("failed to clear prior vectors before ingest")
	}

	chunks, err := p.process(doc, data)
	if err != nil {
		p.fail(ctx, doc.ID, err)
		return err
	}
	if len(chunks) == 0 {
		err := ragerrors.Document("document produced no chunks", nil)
		p.fail(ctx, doc.ID, err)
		return err
	}

	vectorCount, err := p.vectorizeAndStore(ctx, doc, chunks)
	if err != nil {
		if delErr := p.opt.Store.DeleteByDocument(ctx, doc.ID); delErr != nil {
			p.opt.Logger.Error().Err(delErr).Str("document_id", doc.ID).Msg("rollback delete_by_document failed")
		}
		p.fail(ctx, doc.ID, err)
		return err
	}

	return p.opt.Repository.UpdateStatus(ctx, doc.ID, domain.DocumentReady, "", len(chunks), vectorCount)
}

// DeleteDocument removes a document's vectors before its metadata record, so
// a deleted document never leaves orphaned vectors behind in C2.
func (p *Pipeline) DeleteDocument(ctx context.Context, documentID string) error {
	if err := p.opt.Store.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	return p.opt.Repository.Delete(ctx, documentID)
}

func (p *Pipeline) fail(ctx context.Context, documentID string, cause error) {
	if err := p.opt.Repository.UpdateStatus(ctx, documentID, domain.DocumentError, cause.Error(), 0, 0); err != nil {
		p.opt.Logger.Error().Err(err).Str("document_id", documentID).Msg("failed to record document error status")
	}
}

// process runs extraction, preprocessing, and splitting in sequence.
func (p *Pipeline) process(doc domain.Document, data []byte) ([]domain.TextChunk, error) {
	text, err := p.opt.Extractor.Extract(doc.Filename, data)
	if err != nil {
		return nil, err
	}
	text = p.opt.Preprocessor.Process(text)
	chunks, err := p.opt.Splitter.Split(text, doc.ID)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		if chunks[i].Metadata.Extra == nil {
			chunks[i].Metadata.Extra = map[string]any{}
		}
		chunks[i].Metadata.Extra["document_name"] = doc.Filename
	}
	return chunks, nil
}

// vectorizeAndStore embeds chunks in opt.BatchSize-sized batches across
// opt.MaxWorkers workers and inserts each batch's vectors as it completes,
// matching the donor pipeline's batch-then-upsert worker loop. The first
// error stops dispatch of further batches; in-flight workers still drain.
func (p *Pipeline) vectorizeAndStore(ctx context.Context, doc domain.Document, chunks []domain.TextChunk) (int, error) {
	batches := batchChunks(chunks, p.opt.BatchSize)

	type result struct {
		count int
		err   error
	}
	jobs := make(chan []domain.TextChunk)
	results := make(chan result, len(batches))
	var wg sync.WaitGroup

	for i := 0; i < p.opt.MaxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				n, err := p.embedAndStoreBatch(ctx, doc, batch)
				results <- result{count: n, err: err}
			}
		}()
	}

	stop := make(chan struct{})
	go func() {
		defer close(jobs)
		for _, batch := range batches {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case jobs <- batch:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	total := 0
	var firstErr error
	for r := range results {
		if r.err != nil && firstErr == nil {
			firstErr = r.err
			close(stop)
			continue
		}
		total += r.count
	}
	if firstErr != nil {
		return 0, firstErr
	}
	return total, nil
}

func (p *Pipeline) embedAndStoreBatch(ctx context.Context, doc domain.Document, batch []domain.TextChunk) (int, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}
	embeddings, err := p.opt.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, ragerrors.Processing("embed_batch failed during ingestion", err)
	}
	if len(embeddings) != len(batch) {
		return 0, ragerrors.Processing("embed_batch returned a mismatched vector count", nil)
	}

	provider, model, dimensions := describeEmbedder(ctx, p.opt.Embedder)
	records := make([]domain.VectorRecord, len(batch))
	for i, c := range batch {
		meta := chunkMetadataToMap(c)
		if provider != "" {
			meta["embedding_provider"] = provider
		}
		if model != "" {
			meta["embedding_model"] = model
		}
		if dimensions > 0 {
			meta["embedding_dimensions"] = dimensions
		}
		records[i] = domain.VectorRecord{
			ChunkID:    c.ID,
			DocumentID: doc.ID,
			Content:    c.Content,
			Embedding:  embeddings[i],
			Metadata:   meta,
		}
	}
	if err := p.opt.Store.AddVectors(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func describeEmbedder(ctx context.Context, e Embedder) (provider, model string, dimensions int) {
	if d, ok := e.(Describer); ok {
		return d.Describe(ctx)
	}
	return "", "", 0
}

func batchChunks(chunks []domain.TextChunk, size int) [][]domain.TextChunk {
	var out [][]domain.TextChunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		out = append(out, chunks[start:end])
	}
	return out
}

// chunkMetadataToMap flattens a chunk's metadata into the plain map
// domain.VectorRecord carries: chunk_index, length, created_at,
// splitter_type, split_method, the hierarchy/section, sub-chunk and merge
// fields when set, summary and questions when present, then Extra. The
// level, paragraphs, has_header, header_level, sentence_count,
// semantic_group, start_pos and end_pos fields are not copied.
func chunkMetadataToMap(c domain.TextChunk) map[string]any {
	m := map[string]any{
		"chunk_index":    c.ChunkIndex,
		"length":         c.Metadata.Length,
		"created_at":     c.Metadata.CreatedAt.Format(time.RFC3339),
		"splitter_type":  c.Metadata.SplitterType,
		"split_method":   c.Metadata.SplitMethod,
	}
	if c.Metadata.HierarchyPath != "" {
		m["hierarchy_path"] = c.Metadata.HierarchyPath
	}
	if c.Metadata.SectionTitle != "" {
		m["section_title"] = c.Metadata.SectionTitle
	}
	if c.Metadata.ParentChunkID != "" {
		m["parent_chunk_id"] = c.Metadata.ParentChunkID
		m["is_sub_chunk"] = c.Metadata.IsSubChunk
	}
	if c.Metadata.MergedChunks > 0 {
		m["merged_chunks"] = c.Metadata.MergedChunks
	}
	if c.Summary != "" {
		m["summary"] = c.Summary
	}
	if len(c.Questions) > 0 {
		m["questions"] = c.Questions
	}
	for k, v := range c.Metadata.Extra {
		if _, exists := m[k]; !exists {
			m[k] = v
		}
	}
	return m
}
