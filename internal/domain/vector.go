package domain

// VectorRecord is the unit stored in the vector index by C2 (§3). Content is
// copied alongside the embedding so the retrieval payload needs no join back
// to document storage.
type VectorRecord struct {
	ChunkID     string         `json:"chunk_id"`
	DocumentID  string         `json:"document_id"`
	Content     string         `json:"content"`
	Embedding   []float32      `json:"embedding"`
	Metadata    map[string]any `json:"metadata"`
}

// SearchResult is one hit returned by the retrieval engine (§3). After
// reranking, Metadata carries a "rerank_score" key and the caller re-sorts
// on it.
type SearchResult struct {
	ChunkID         string         `json:"chunk_id"`
	DocumentID      string         `json:"document_id"`
	Content         string         `json:"content"`
	SimilarityScore float64        `json:"similarity_score"`
	Metadata        map[string]any `json:"metadata"`
}

// RerankScore reads metadata["rerank_score"] if present, else 0, ok=false.
func (r SearchResult) RerankScore() (float64, bool) {
	if r.Metadata == nil {
		return 0, false
	}
	v, ok := r.Metadata["rerank_score"]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// CollectionInfo describes a vector collection's shape (§4.2).
type CollectionInfo struct {
	Name      string `json:"name"`
	Count     int64  `json:"count"`
	Dimension int    `json:"dimension"`
}

// VectorFilter is a flat equality filter applied to VectorRecord.Metadata
// during search (§4.2's "metadata filter").
type VectorFilter map[string]string
