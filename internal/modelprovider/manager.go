package modelprovider

import (
	"context"
	"sync"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// modelEntry is one registered model's configuration plus its built instance,
// if any (an instance is built lazily on first switch_active or test_model
// call, matching the donor's on-demand provider construction).
type modelEntry struct {
	cfg      domain.ModelConfig
	embed    Embedding
	rerank   Reranking
	generate Generation
}

// Manager is the model registry of §4.7: add_model/test_model/switch_active/
// get_configs/get_metrics, plus the "active" resolution that C5 (retrieval)
// and C6 (qa) depend on for embed/rerank/generate calls. Grounded on the
// donor's internal/llm/provider.go registry-of-providers shape, generalized
// from "one configured provider per capability" to "many registered models,
// one active per type" per §3's ModelConfig/ModelStatus.
type Manager struct {
	registry *Registry
	factory  *Factory

	mu      sync.RWMutex
	models  map[string]*modelEntry
	active  map[domain.ModelType]string
}

// NewManager returns a Manager with no models registered. Callers add models
// via AddModel and pick one active per type via SwitchActive.
func NewManager(registry *Registry) *Manager {
	return &Manager{
		registry: registry,
		factory:  NewFactory(registry),
		models:   map[string]*modelEntry{},
		active:   map[domain.ModelType]string{},
	}
}

// AddModel registers cfg under cfg.Name, replacing any prior registration of
// the same name (§4.7 add_model). It does not build the provider instance or
// change which model is active for cfg.ModelType.
func (m *Manager) AddModel(cfg domain.ModelConfig) error {
	if cfg.Name == "" {
		return ragerrors.Validation("model name is required", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[cfg.Name] = &modelEntry{cfg: cfg}
	return nil
}

func (m *Manager) specFor(cfg domain.ModelConfig) Spec {
	spec := Spec{Name: cfg.Name, Provider: cfg.Provider, ModelName: cfg.ModelName}
	if cfg.Config == nil {
		return spec
	}
	if v, ok := cfg.Config["api_key"].(string); ok {
		spec.APIKey = v
	}
	if v, ok := cfg.Config["base_url"].(string); ok {
		spec.BaseURL = v
	}
	if v, ok := asInt(cfg.Config["max_concurrent_requests"]); ok {
		spec.MaxConcurrentRequests = v
	}
	if v, ok := asInt(cfg.Config["request_interval_ms"]); ok {
		spec.RequestIntervalMS = v
	}
	if v, ok := asInt(cfg.Config["retry_attempts"]); ok {
		spec.RetryAttempts = v
	}
	if v, ok := asInt(cfg.Config["max_length"]); ok {
		spec.MaxLength = v
	}
	if v, ok := asInt(cfg.Config["batch_size"]); ok {
		spec.BatchSize = v
	}
	if v, ok := asInt(cfg.Config["timeout_seconds"]); ok {
		spec.TimeoutSeconds = v
	}
	if v, ok := cfg.Config["enable_fallback"].(bool); ok {
		spec.EnableFallback = v
	}
	if v, ok := cfg.Config["fallback_provider"].(string); ok {
		spec.FallbackProvider = v
	}
	return spec
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func (m *Manager) build(entry *modelEntry) error {
	spec := m.specFor(entry.cfg)
	switch entry.cfg.ModelType {
	case domain.ModelTypeEmbedding:
		if entry.embed != nil {
			return nil
		}
		primary, _, err := m.factory.BuildEmbedding(spec)
		if err != nil {
			return err
		}
		entry.embed = primary
	case domain.ModelTypeReranking:
		if entry.rerank != nil {
			return nil
		}
		primary, _, err := m.factory.BuildReranking(spec)
		if err != nil {
			return err
		}
		entry.rerank = primary
	case domain.ModelTypeLLM:
		if entry.generate != nil {
			return nil
		}
		primary, _, err := m.factory.BuildGeneration(spec)
		if err != nil {
			return err
		}
		entry.generate = primary
	default:
		return ragerrors.Validation("unknown model_type", nil)
	}
	return nil
}

// TestModel builds (if needed) and health-checks the named model without
// making it active (§4.7 test_model).
func (m *Manager) TestModel(ctx context.Context, name string) (domain.HealthCheckResult, error) {
	m.mu.Lock()
	entry, ok := m.models[name]
	m.mu.Unlock()
	if !ok {
		return domain.HealthCheckResult{}, ragerrors.NotFound("model "+name+" is not registered", nil)
	}

	m.mu.Lock()
	err := m.build(entry)
	m.mu.Unlock()
	if err != nil {
		return domain.HealthCheckResult{Status: domain.HealthUnhealthy, Detail: err.Error()}, err
	}

	switch entry.cfg.ModelType {
	case domain.ModelTypeEmbedding:
		if err := entry.embed.Initialize(ctx); err != nil {
			return domain.HealthCheckResult{Status: domain.HealthUnhealthy, Detail: err.Error()}, nil
		}
		return entry.embed.HealthCheck(ctx), nil
	case domain.ModelTypeReranking:
		if err := entry.rerank.Initialize(ctx); err != nil {
			return domain.HealthCheckResult{Status: domain.HealthUnhealthy, Detail: err.Error()}, nil
		}
		return entry.rerank.HealthCheck(ctx), nil
	case domain.ModelTypeLLM:
		if err := entry.generate.Initialize(ctx); err != nil {
			return domain.HealthCheckResult{Status: domain.HealthUnhealthy, Detail: err.Error()}, nil
		}
		return entry.generate.HealthCheck(ctx), nil
	default:
		return domain.HealthCheckResult{}, ragerrors.Validation("unknown model_type", nil)
	}
}

// SwitchActive builds (if needed), initializes, and makes name the active
// model for its type (§4.7 switch_active, §5 "visible to new requests only":
// readers take m.mu.RLock so an in-flight ActiveEmbedding call always sees
// either the old or the new active name, never a half-switched one).
func (m *Manager) SwitchActive(ctx context.Context, name string) error {
	m.mu.Lock()
	entry, ok := m.models[name]
	if !ok {
		m.mu.Unlock()
		return ragerrors.NotFound("model "+name+" is not registered", nil)
	}
	if err := m.build(entry); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	var initErr error
	switch entry.cfg.ModelType {
	case domain.ModelTypeEmbedding:
		initErr = entry.embed.Initialize(ctx)
	case domain.ModelTypeReranking:
		initErr = entry.rerank.Initialize(ctx)
	case domain.ModelTypeLLM:
		initErr = entry.generate.Initialize(ctx)
	}
	if initErr != nil {
		return initErr
	}

	m.mu.Lock()
	m.active[entry.cfg.ModelType] = name
	m.mu.Unlock()
	return nil
}

// ActiveEmbedding returns the currently active embedding provider (§4.5 step
// 1 "query embedding via the active embedding model").
func (m *Manager) ActiveEmbedding(ctx context.Context) (Embedding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.active[domain.ModelTypeEmbedding]
	if !ok {
		return nil, ragerrors.ModelInit("no active embedding model", nil)
	}
	return m.models[name].embed, nil
}

// ActiveReranking returns the currently active reranking provider, or
// (nil, false) if none is active — callers treat an absent reranker as
// "reranking disabled", not an error (§4.5 step 4).
func (m *Manager) ActiveReranking() (Reranking, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.active[domain.ModelTypeReranking]
	if !ok {
		return nil, false
	}
	return m.models[name].rerank, true
}

// ActiveGeneration returns the currently active LLM provider (§4.6 step 5).
func (m *Manager) ActiveGeneration(ctx context.Context) (Generation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.active[domain.ModelTypeLLM]
	if !ok {
		return nil, ragerrors.ModelInit("no active generation model", nil)
	}
	return m.models[name].generate, nil
}

// ActiveNames returns the active model name for every type that has one
// (§4.7 get_configs's "active_models" field).
func (m *Manager) ActiveNames() map[domain.ModelType]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[domain.ModelType]string, len(m.active))
	for typ, name := range m.active {
		out[typ] = name
	}
	return out
}

// GetConfigs returns every registered model's configuration, keyed by name
// (§4.7 get_configs). It carries no live status; see GetMetrics and
// TestModel.
func (m *Manager) GetConfigs() map[string]domain.ModelConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.ModelConfig, len(m.models))
	for name, e := range m.models {
		out[name] = e.cfg
	}
	return out
}

// GetMetrics returns the active model's metrics for typ, or an empty
// snapshot if none is active (§4.7 get_metrics).
func (m *Manager) GetMetrics(typ domain.ModelType) domain.Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.active[typ]
	if !ok {
		return domain.Metrics{}
	}
	entry := m.models[name]
	switch typ {
	case domain.ModelTypeEmbedding:
		if entry.embed != nil {
			return entry.embed.GetMetrics()
		}
	case domain.ModelTypeReranking:
		if entry.rerank != nil {
			return entry.rerank.GetMetrics()
		}
	case domain.ModelTypeLLM:
		if entry.generate != nil {
			return entry.generate.GetMetrics()
		}
	}
	return domain.Metrics{}
}

// Cleanup tears down every built provider instance, used on shutdown.
func (m *Manager) Cleanup(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.models {
		if e.embed != nil {
			_ = e.embed.Cleanup(ctx)
		}
		if e.rerank != nil {
			_ = e.rerank.Cleanup(ctx)
		}
		if e.generate != nil {
			_ = e.generate.Cleanup(ctx)
		}
	}
}
