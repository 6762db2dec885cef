package domain

// ModelType identifies which capability (§4.1) a ModelConfig targets.
type ModelType string

const (
	ModelTypeEmbedding ModelType = "embedding"
	ModelTypeReranking ModelType = "reranking"
	ModelTypeLLM       ModelType = "llm"
)

// ModelConfig is one registered model instance's configuration (§3).
type ModelConfig struct {
	Name      string         `json:"name"`
	ModelType ModelType      `json:"model_type"`
	Provider  string         `json:"provider"`
	ModelName string         `json:"model_name"`
	Config    map[string]any `json:"config,omitempty"`
	Enabled   bool           `json:"enabled"`
	Priority  int            `json:"priority"`
}

// ModelState is the per-instance lifecycle state (§4.1's state machine).
type ModelState string

const (
	ModelUnloaded ModelState = "unloaded"
	ModelLoading  ModelState = "loading"
	ModelLoaded   ModelState = "loaded"
	ModelError    ModelState = "error"
)

// ModelHealth is the coarse health signal reported by health_check (§3).
type ModelHealth string

const (
	HealthHealthy   ModelHealth = "healthy"
	HealthDegraded  ModelHealth = "degraded"
	HealthUnhealthy ModelHealth = "unhealthy"
	HealthUnknown   ModelHealth = "unknown"
)

// Metrics is the counters snapshot every capability's get_metrics() returns
// (§4.1 item 5), adopting the source's RerankingMetrics shape generalized
// from "documents" to "units" (tokens for LLM/embedding, documents for
// reranking).
type Metrics struct {
	TotalRequests           int64   `json:"total_requests"`
	SuccessfulRequests      int64   `json:"successful_requests"`
	FailedRequests          int64   `json:"failed_requests"`
	TotalProcessingTimeMS   int64   `json:"total_processing_time_ms"`
	TotalUnitsProcessed     int64   `json:"total_units_processed"`
	SuccessRate             float64 `json:"success_rate"`
	FailureRate             float64 `json:"failure_rate"`
	AverageProcessingTimeMS float64 `json:"average_processing_time_ms"`
	AverageUnitsPerRequest  float64 `json:"average_units_per_request"`
}

// Snapshot computes the derived fields (success_rate, averages) from the raw
// counters. Call after reading the atomic counters to get a consistent view.
func (m Metrics) Snapshot() Metrics {
	out := m
	if m.TotalRequests > 0 {
		out.SuccessRate = float64(m.SuccessfulRequests) / float64(m.TotalRequests)
		out.FailureRate = float64(m.FailedRequests) / float64(m.TotalRequests)
		out.AverageProcessingTimeMS = float64(m.TotalProcessingTimeMS) / float64(m.TotalRequests)
		out.AverageUnitsPerRequest = float64(m.TotalUnitsProcessed) / float64(m.TotalRequests)
	}
	return out
}

// ModelStatus is the per-registered-model lifecycle+health snapshot (§3).
type ModelStatus struct {
	State       ModelState  `json:"state"`
	Health      ModelHealth `json:"health"`
	LoadTimeMS  int64       `json:"load_time_ms,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
	Metrics     Metrics     `json:"metrics"`
}

// HealthCheckResult is the return shape of every capability's
// health_check() (§4.1).
type HealthCheckResult struct {
	Status      ModelHealth `json:"status"`
	Dimensions  int         `json:"dimensions,omitempty"`
	ModelLoaded bool        `json:"model_loaded"`
	Detail      string      `json:"detail,omitempty"`
}
