package config

import "ragcore/internal/domain"

// defaultAppConfig returns the zero-state defaults the loader applies before
// overlaying YAML/env values, matching the source's per-field `.get(key,
// default)` defaults in config/loader.py's `_create_*_config` methods.
func defaultAppConfig() AppConfig {
	return AppConfig{
		App: AppSection{
			Name:        "RAG Knowledge QA System",
			Version:     "1.0.0",
			Debug:       false,
			Environment: "development",
		},
		Database: DatabaseConfig{
			URL:  "sqlite:///./database/rag_system.db",
			Echo: false,
		},
		VectorStore: VectorStoreConfig{
			Type:             "qdrant",
			Endpoint:         "http://localhost:6334",
			PersistDirectory: "./data/vector_store",
			CollectionName:   "knowledge_base",
			Dimension:        1536,
			Metric:           "cosine",
		},
		Embeddings: EmbeddingsConfig{
			Provider:      "mock",
			Model:         "text-embedding-ada-002",
			ChunkSize:     1000,
			ChunkOverlap:  200,
			BatchSize:     100,
			TimeoutSec:    60,
			RetryAttempts: 3,
		},
		LLM: LLMConfig{
			Provider:         "mock",
			Model:            "gpt-4",
			Temperature:      0.1,
			MaxTokens:        1000,
			TimeoutSec:       60,
			RetryAttempts:    3,
			MaxContextLength: 4000,
		},
		Retrieval: domain.RetrievalConfig{
			TopK:                5,
			SimilarityThreshold: 0.7,
			SearchMode:          domain.SearchSemantic,
			EnableRerank:        false,
			EnableCache:         false,
			HybridAlpha:         0.7,
		},
		Reranking: RerankingConfig{
			Provider:              "mock",
			Model:                 "cross-encoder/ms-marco-MiniLM-L-6-v2",
			ModelName:             "cross-encoder/ms-marco-MiniLM-L-6-v2",
			BatchSize:             32,
			MaxLength:             512,
			TimeoutSec:            30,
			MaxConcurrentRequests: 10,
			RequestIntervalMS:     100,
			RetryAttempts:         3,
			EnableFallback:        true,
			FallbackProvider:      "mock",
			Device:                "cpu",
		},
		API: APIConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
			LogLevel:    "info",
		},
		Uploads: UploadsConfig{
			Backend:   "filesystem",
			Directory: "./data/uploads",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			Channel: "ragcore:config:updates",
		},
		Splitting: SplittingConfig{
			MinChunkSize:      100,
			MaxChunkSize:      2000,
			PreserveStructure: true,
		},
		Observability: ObservabilityConfig{
			ServiceName:    "ragcore",
			ServiceVersion: "1.0.0",
		},
	}
}

var supportedModelProviders = []string{
	"openai", "siliconflow", "modelscope", "deepseek", "ollama", "anthropic", "gemini", "mock",
}

var supportedVectorStoreTypes = []string{"qdrant", "memory", "pinecone"}
