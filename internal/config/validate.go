package config

import (
	"fmt"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// Validate runs every section's validator and aggregates the result into one
// combined error (§4.7's "Validation errors are aggregated and reported as
// one combined error").
func (c AppConfig) Validate() error {
	var verrs ragerrors.ValidationErrors
	c.validateLLM(&verrs)
	c.validateEmbeddings(&verrs)
	c.validateVectorStore(&verrs)
	c.validateRetrieval(&verrs)
	c.validateReranking(&verrs)
	c.validateDatabase(&verrs)
	c.validateSplitting(&verrs)
	return verrs.AsError()
}

func (c AppConfig) validateLLM(verrs *ragerrors.ValidationErrors) {
	if !contains(supportedModelProviders, c.LLM.Provider) {
		verrs.Add("llm.provider %q is not supported (supported: %v)", c.LLM.Provider, supportedModelProviders)
	}
	if c.LLM.Model == "" && c.LLM.Provider != "mock" {
		verrs.Add("llm.model must not be empty")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		verrs.Add("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		verrs.Add("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.TimeoutSec <= 0 {
		verrs.Add("llm.timeout must be positive, got %d", c.LLM.TimeoutSec)
	}
	if c.LLM.RetryAttempts < 0 {
		verrs.Add("llm.retry_attempts must not be negative")
	}
}

func (c AppConfig) validateEmbeddings(verrs *ragerrors.ValidationErrors) {
	if !contains(supportedModelProviders, c.Embeddings.Provider) {
		verrs.Add("embeddings.provider %q is not supported (supported: %v)", c.Embeddings.Provider, supportedModelProviders)
	}
	if c.Embeddings.ChunkSize <= 0 {
		verrs.Add("embeddings.chunk_size must be positive, got %d", c.Embeddings.ChunkSize)
	}
	if c.Embeddings.ChunkOverlap < 0 {
		verrs.Add("embeddings.chunk_overlap must not be negative")
	}
	if c.Embeddings.ChunkSize > 0 && c.Embeddings.ChunkOverlap >= c.Embeddings.ChunkSize {
		verrs.Add("embeddings.chunk_overlap (%d) must be less than chunk_size (%d)", c.Embeddings.ChunkOverlap, c.Embeddings.ChunkSize)
	}
	if c.Embeddings.BatchSize <= 0 {
		verrs.Add("embeddings.batch_size must be positive")
	}
	if c.Embeddings.Dimensions < 0 {
		verrs.Add("embeddings.dimensions must not be negative")
	}
}

func (c AppConfig) validateVectorStore(verrs *ragerrors.ValidationErrors) {
	if !contains(supportedVectorStoreTypes, c.VectorStore.Type) {
		verrs.Add("vector_store.type %q is not supported (supported: %v)", c.VectorStore.Type, supportedVectorStoreTypes)
	}
	if c.VectorStore.Type == "pinecone" {
		if c.VectorStore.PineconeAPIKey == "" {
			verrs.Add("vector_store.pinecone_api_key is required for type=pinecone")
		}
		if c.VectorStore.PineconeEnvironment == "" {
			verrs.Add("vector_store.pinecone_environment is required for type=pinecone")
		}
	}
}

func (c AppConfig) validateRetrieval(verrs *ragerrors.ValidationErrors) {
	if c.Retrieval.TopK <= 0 {
		verrs.Add("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		verrs.Add("retrieval.similarity_threshold must be in [0,1], got %v", c.Retrieval.SimilarityThreshold)
	}
	switch c.Retrieval.SearchMode {
	case domain.SearchSemantic, domain.SearchKeyword, domain.SearchHybrid:
	default:
		verrs.Add("retrieval.search_mode %q must be one of semantic|keyword|hybrid", c.Retrieval.SearchMode)
	}
	if c.Retrieval.HybridAlpha < 0 || c.Retrieval.HybridAlpha > 1 {
		verrs.Add("retrieval.hybrid_alpha must be in [0,1], got %v", c.Retrieval.HybridAlpha)
	}
}

func (c AppConfig) validateReranking(verrs *ragerrors.ValidationErrors) {
	if c.Reranking.BatchSize <= 0 {
		verrs.Add("reranking.batch_size must be positive")
	}
	if c.Reranking.MaxLength <= 0 {
		verrs.Add("reranking.max_length must be positive")
	}
	if c.Reranking.MaxConcurrentRequests <= 0 {
		verrs.Add("reranking.max_concurrent_requests must be positive")
	}
}

func (c AppConfig) validateDatabase(verrs *ragerrors.ValidationErrors) {
	if c.Database.URL == "" {
		verrs.Add("database.url must not be empty")
	}
}

func (c AppConfig) validateSplitting(verrs *ragerrors.ValidationErrors) {
	if c.Splitting.MinChunkSize <= 0 {
		verrs.Add("splitting.min_chunk_size must be positive, got %d", c.Splitting.MinChunkSize)
	}
	if c.Splitting.MaxChunkSize <= 0 {
		verrs.Add("splitting.max_chunk_size must be positive, got %d", c.Splitting.MaxChunkSize)
	}
	if c.Splitting.MaxChunkSize > 0 && c.Splitting.MinChunkSize > 0 && c.Splitting.MinChunkSize >= c.Splitting.MaxChunkSize {
		verrs.Add("splitting.min_chunk_size (%d) must be less than max_chunk_size (%d)", c.Splitting.MinChunkSize, c.Splitting.MaxChunkSize)
	}
	if c.Embeddings.ChunkSize > 0 && c.Splitting.MaxChunkSize > 0 && c.Embeddings.ChunkSize > c.Splitting.MaxChunkSize {
		verrs.Add("embeddings.chunk_size (%d) must not exceed splitting.max_chunk_size (%d)", c.Embeddings.ChunkSize, c.Splitting.MaxChunkSize)
	}
}

// ValidateSection validates only the named section against a proposed
// replacement AppConfig, used by validate_update/update_section (§4.7) so a
// partial update can be checked without committing it. errMsgs is empty when
// valid.
func ValidateSection(section string, candidate AppConfig) []string {
	var verrs ragerrors.ValidationErrors
	switch section {
	case "llm":
		candidate.validateLLM(&verrs)
	case "embeddings", "embedding":
		candidate.validateEmbeddings(&verrs)
	case "vector_store", "vector_db":
		candidate.validateVectorStore(&verrs)
	case "retrieval":
		candidate.validateRetrieval(&verrs)
	case "reranking":
		candidate.validateReranking(&verrs)
	case "database":
		candidate.validateDatabase(&verrs)
	case "splitting":
		candidate.validateSplitting(&verrs)
	case "app", "api", "uploads", "redis", "observability":
		// Known sections with no section-level constraints.
	default:
		verrs.Add("unknown config section %q", section)
	}
	return verrs.Errors
}

// knownSections enumerates the known top-level sections, for get_section/
// update_section dispatch (§4.7, §6).
var knownSections = map[string]bool{
	"app": true, "database": true, "vector_store": true, "embeddings": true,
	"llm": true, "retrieval": true, "reranking": true, "api": true,
	"uploads": true, "redis": true, "splitting": true, "observability": true,
}

func requireKnownSection(name string) error {
	if !knownSections[name] {
		return ragerrors.Configuration(fmt.Sprintf("unknown config section %q", name), nil)
	}
	return nil
}
