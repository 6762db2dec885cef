// Package config implements C7: loading, validating, hot-reloading, and
// persisting AppConfig, plus the model-lifecycle registry glue consumed by
// internal/modelprovider. It follows the donor's internal/config/config.go
// shape (typed sections, env overlay, warn-on-default) generalized to the
// base spec's AppConfig sections (§3, §4.7).
package config

import "ragcore/internal/domain"

// AppConfig is the root configuration object (§3). Sections are typed and
// independently validated; Manager (see manager.go) holds AppConfig in a
// copy-on-write snapshot for hot reload.
type AppConfig struct {
	App         AppSection         `yaml:"app" json:"app"`
	Database    DatabaseConfig     `yaml:"database" json:"database"`
	VectorStore VectorStoreConfig  `yaml:"vector_store" json:"vector_store"`
	Embeddings  EmbeddingsConfig   `yaml:"embeddings" json:"embeddings"`
	LLM         LLMConfig          `yaml:"llm" json:"llm"`
	Retrieval   domain.RetrievalConfig `yaml:"retrieval" json:"retrieval"`
	Reranking   RerankingConfig    `yaml:"reranking" json:"reranking"`
	API         APIConfig          `yaml:"api" json:"api"`
	Uploads     UploadsConfig      `yaml:"uploads" json:"uploads"`
	Redis       RedisConfig        `yaml:"redis" json:"redis"`
	Splitting   SplittingConfig    `yaml:"splitting" json:"splitting"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// AppSection is the top-level "app" block.
type AppSection struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Debug       bool   `yaml:"debug" json:"debug"`
	Environment string `yaml:"environment" json:"environment"`
}

// DatabaseConfig describes C3's backing store (§3, §6's "sqlite:///<path>").
type DatabaseConfig struct {
	URL  string `yaml:"url" json:"url"`
	Echo bool   `yaml:"echo" json:"echo"`
}

// VectorStoreConfig describes C2's backing index.
type VectorStoreConfig struct {
	Type                string `yaml:"type" json:"type"` // qdrant | memory
	Endpoint            string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	PersistDirectory    string `yaml:"persist_directory" json:"persist_directory"`
	CollectionName      string `yaml:"collection_name" json:"collection_name"`
	Dimension           int    `yaml:"dimension,omitempty" json:"dimension,omitempty"`
	PineconeAPIKey      string `yaml:"pinecone_api_key,omitempty" json:"pinecone_api_key,omitempty"`
	PineconeEnvironment string `yaml:"pinecone_environment,omitempty" json:"pinecone_environment,omitempty"`
	Metric              string `yaml:"metric" json:"metric"` // cosine | l2 | ip
}

// EmbeddingsConfig configures the active embedding model (§3). Loader also
// accepts the legacy singular "embedding" YAML key as an alias for this
// section (§9 Open Question resolution).
type EmbeddingsConfig struct {
	Provider      string `yaml:"provider" json:"provider"`
	Model         string `yaml:"model" json:"model"`
	ChunkSize     int    `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap  int    `yaml:"chunk_overlap" json:"chunk_overlap"`
	BatchSize     int    `yaml:"batch_size" json:"batch_size"`
	Dimensions    int    `yaml:"dimensions" json:"dimensions"`
	APIKey        string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL       string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	TimeoutSec    int    `yaml:"timeout" json:"timeout"`
	RetryAttempts int    `yaml:"retry_attempts" json:"retry_attempts"`
}

// LLMConfig configures the active generation model (§3).
type LLMConfig struct {
	Provider      string  `yaml:"provider" json:"provider"`
	Model         string  `yaml:"model" json:"model"`
	Temperature   float64 `yaml:"temperature" json:"temperature"`
	MaxTokens     int     `yaml:"max_tokens" json:"max_tokens"`
	APIKey        string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL       string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	TimeoutSec    int     `yaml:"timeout" json:"timeout"`
	RetryAttempts int     `yaml:"retry_attempts" json:"retry_attempts"`
	Stream        bool    `yaml:"stream" json:"stream"`
	// MaxContextLength bounds the assembled-context character count (§4.6
	// step 3).
	MaxContextLength int `yaml:"max_context_length" json:"max_context_length"`
}

// RerankingConfig configures the active reranking model, adopting the
// source's RerankingConfig operational knobs (see SUPPLEMENTED FEATURES).
type RerankingConfig struct {
	Provider              string  `yaml:"provider" json:"provider"`
	Model                 string  `yaml:"model" json:"model"`
	ModelName             string  `yaml:"model_name" json:"model_name"`
	BatchSize             int     `yaml:"batch_size" json:"batch_size"`
	MaxLength             int     `yaml:"max_length" json:"max_length"`
	TimeoutSec            float64 `yaml:"timeout" json:"timeout"`
	APIKey                string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL               string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	MaxConcurrentRequests int     `yaml:"max_concurrent_requests" json:"max_concurrent_requests"`
	RequestIntervalMS     int     `yaml:"request_interval_ms" json:"request_interval_ms"`
	RetryAttempts         int     `yaml:"retry_attempts" json:"retry_attempts"`
	EnableFallback        bool    `yaml:"enable_fallback" json:"enable_fallback"`
	FallbackProvider      string  `yaml:"fallback_provider" json:"fallback_provider"`
	Device                string  `yaml:"device" json:"device"`
	ModelCacheDir         string  `yaml:"model_cache_dir,omitempty" json:"model_cache_dir,omitempty"`
}

// APIConfig configures the outer HTTP server shell (out of core scope, but
// the bind address/port/log level are ambient bootstrap concerns §6).
type APIConfig struct {
	Host        string   `yaml:"host" json:"host"`
	Port        int      `yaml:"port" json:"port"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
	LogLevel    string   `yaml:"log_level" json:"log_level"`
}

// UploadsConfig selects the backend for uploaded-original storage (§6
// "out of scope from the core's perspective; C4 accepts a path" — given a
// concrete, swappable home per the domain stack table).
type UploadsConfig struct {
	Backend   string     `yaml:"backend" json:"backend"` // filesystem | s3 | memory
	Directory string     `yaml:"directory" json:"directory"`
	S3        S3Config   `yaml:"s3" json:"s3"`
}

// S3Config/S3SSEConfig mirror the donor objectstore.S3Store constructor
// arguments (internal/objectstore/s3.go), reused verbatim here.
type S3Config struct {
	Bucket                string      `yaml:"bucket" json:"bucket"`
	Region                string      `yaml:"region" json:"region"`
	Endpoint              string      `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Prefix                string      `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	AccessKey             string      `yaml:"access_key,omitempty" json:"access_key,omitempty"`
	SecretKey             string      `yaml:"secret_key,omitempty" json:"secret_key,omitempty"`
	UsePathStyle          bool        `yaml:"use_path_style" json:"use_path_style"`
	TLSInsecureSkipVerify bool        `yaml:"tls_insecure_skip_verify" json:"tls_insecure_skip_verify"`
	SSE                   S3SSEConfig `yaml:"sse" json:"sse"`
}

type S3SSEConfig struct {
	Mode     string `yaml:"mode,omitempty" json:"mode,omitempty"` // "" | sse-s3 | sse-kms
	KMSKeyID string `yaml:"kms_key_id,omitempty" json:"kms_key_id,omitempty"`
}

// SplittingConfig configures C4's recursive text splitter (§4.4), adopting
// the source's SplitConfig field set (splitters.py) beyond the chunk_size/
// chunk_overlap pair already carried on EmbeddingsConfig.
type SplittingConfig struct {
	MinChunkSize       int  `yaml:"min_chunk_size" json:"min_chunk_size"`
	MaxChunkSize       int  `yaml:"max_chunk_size" json:"max_chunk_size"`
	PreserveStructure  bool `yaml:"preserve_structure" json:"preserve_structure"`
	SemanticSplit      bool `yaml:"semantic_split" json:"semantic_split"`
	GenerateSummary    bool `yaml:"generate_summary" json:"generate_summary"`
	GenerateQuestions  bool `yaml:"generate_questions" json:"generate_questions"`
}

// Redis configures the optional hot-reload publication transport (§5
// "Configuration is copy-on-write"; domain stack table's redis entry).
type RedisConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Channel string `yaml:"channel" json:"channel"`
}

// ObservabilityConfig configures the ambient logging/tracing/metrics stack
// (internal/observability), grounded on the donor's config.ObsConfig.
type ObservabilityConfig struct {
	LogPath        string `yaml:"log_path,omitempty" json:"log_path,omitempty"`
	OTLPEndpoint   string `yaml:"otlp_endpoint,omitempty" json:"otlp_endpoint,omitempty"`
	ServiceName    string `yaml:"service_name" json:"service_name"`
	ServiceVersion string `yaml:"service_version" json:"service_version"`
}
