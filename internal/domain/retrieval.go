package domain

// SearchMode selects how the retrieval engine scores candidates (§3).
type SearchMode string

const (
	SearchSemantic SearchMode = "semantic"
	SearchKeyword  SearchMode = "keyword"
	SearchHybrid   SearchMode = "hybrid"
)

// RetrievalConfig is the §3 RetrievalConfig section of AppConfig. It is also
// the argument to the retrieval engine's public search_with_config
// operation (§4.5), so both C5 and C7 import this shape from domain rather
// than declaring their own.
type RetrievalConfig struct {
	TopK                int        `yaml:"top_k" json:"top_k"`
	SimilarityThreshold float64    `yaml:"similarity_threshold" json:"similarity_threshold"`
	SearchMode          SearchMode `yaml:"search_mode" json:"search_mode"`
	EnableRerank        bool       `yaml:"enable_rerank" json:"enable_rerank"`
	EnableCache         bool       `yaml:"enable_cache" json:"enable_cache"`
	// HybridAlpha weights the semantic term of the hybrid score
	// (hybrid = alpha*semantic + (1-alpha)*keyword); default 0.7 (§4.5).
	HybridAlpha float64 `yaml:"hybrid_alpha" json:"hybrid_alpha"`
}
