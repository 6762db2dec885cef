package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"ragcore/internal/ragerrors"
)

// Subscriber receives the new AppConfig snapshot after a successful
// update_section/reload (§4.7 "publishes the new values to subscribers").
type Subscriber func(AppConfig)

// Manager owns the live, hot-reloadable AppConfig (§4.7). Readers call
// Current() to take a snapshot reference; writers call UpdateSection/Reload,
// which validate, persist to disk, and publish to subscribers. Manager is
// safe for concurrent use: Current is lock-free (atomic.Pointer), mutations
// take an internal mutex so concurrent writers serialize (§5 "Configuration
// is copy-on-write").
type Manager struct {
	path string
	log  zerolog.Logger

	current atomic.Pointer[AppConfig]

	mu          sync.Mutex
	subscribers []Subscriber

	publisher Publisher // optional redis pub/sub mirror, see publish.go
}

// NewManager loads the config at path and returns a ready Manager.
func NewManager(path string, log zerolog.Logger) (*Manager, error) {
	cfg, err := Load(path, log)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path, log: log}
	m.current.Store(&cfg)
	return m, nil
}

// Current returns the live config snapshot. The returned value is a copy of
// the pointer's target at call time; later updates do not mutate it.
func (m *Manager) Current() AppConfig {
	return *m.current.Load()
}

// GetSection returns the named section as a generic map, for the
// GET /config/{section} contract (§6).
func (m *Manager) GetSection(name string) (map[string]any, error) {
	if err := requireKnownSection(name); err != nil {
		return nil, err
	}
	cfg := m.Current()
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var whole map[string]map[string]any
	if err := yaml.Unmarshal(b, &whole); err != nil {
		return nil, err
	}
	return whole[name], nil
}

// ValidationResult is the shape of validate_update/update_section's
// response (§4.7, §6).
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidateUpdate checks a proposed partial update to one section without
// applying it (§4.7 validate_update).
func (m *Manager) ValidateUpdate(section string, partial map[string]any) ValidationResult {
	candidate := m.Current()
	if err := mergeSectionInto(&candidate, section, partial); err != nil {
		return ValidationResult{Valid: false, Errors: []string{err.Error()}}
	}
	errs := ValidateSection(section, candidate)
	if len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs}
	}
	return ValidationResult{Valid: true}
}

// UpdateSection validates, merges, persists the whole file, and publishes
// the new snapshot to subscribers (§4.7 update_section). On validation
// failure the live config is untouched (§7 ConfigurationError policy).
func (m *Manager) UpdateSection(section string, partial map[string]any) (AppConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate := m.Current()
	if err := mergeSectionInto(&candidate, section, partial); err != nil {
		return AppConfig{}, ragerrors.Configuration(err.Error(), nil)
	}
	if errs := ValidateSection(section, candidate); len(errs) > 0 {
		return AppConfig{}, ragerrors.Configuration(fmt.Sprintf("validation failed: %v", errs), nil)
	}
	if err := candidate.Validate(); err != nil {
		return AppConfig{}, ragerrors.Configuration("validation failed", err)
	}
	if err := m.persist(candidate); err != nil {
		return AppConfig{}, err
	}
	m.current.Store(&candidate)
	m.notify(candidate)
	return candidate, nil
}

// Reload re-reads the config from disk (§4.7 reload), validating and
// publishing exactly like UpdateSection.
func (m *Manager) Reload() (AppConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := Load(m.path, m.log)
	if err != nil {
		return AppConfig{}, err
	}
	m.current.Store(&cfg)
	m.notify(cfg)
	return cfg, nil
}

// Subscribe registers fn to be called with every future published snapshot
// (§4.7 "every component gets a post-update hook").
func (m *Manager) Subscribe(fn Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// SetPublisher installs an optional transport (e.g. Redis pub/sub) that
// mirrors published snapshots to other processes sharing this config file
// (domain stack: "optional pub/sub transport for update_section publication
// across multiple server processes").
func (m *Manager) SetPublisher(p Publisher) {
	m.publisher = p
}

func (m *Manager) notify(cfg AppConfig) {
	for _, sub := range m.subscribers {
		sub(cfg)
	}
	if m.publisher != nil {
		if err := m.publisher.Publish(context.Background(), cfg); err != nil {
			m.log.Warn().Err(err).Msg("failed to publish config update")
		}
	}
}

func (m *Manager) persist(cfg AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return ragerrors.Configuration("marshal config", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return ragerrors.Configuration("write config file", err)
	}
	return nil
}

// mergeSectionInto remarshals partial onto the named section of cfg in
// place, leaving other sections untouched.
func mergeSectionInto(cfg *AppConfig, section string, partial map[string]any) error {
	if err := requireKnownSection(section); err != nil {
		return err
	}
	full, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var whole map[string]map[string]any
	if err := yaml.Unmarshal(full, &whole); err != nil {
		return err
	}
	if whole[section] == nil {
		whole[section] = map[string]any{}
	}
	for k, v := range partial {
		whole[section][k] = v
	}
	merged, err := yaml.Marshal(whole)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(merged, cfg)
}
