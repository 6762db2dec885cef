package retrieval

import (
	"sync"
	"time"

	"ragcore/internal/domain"
)

// ModeStats accumulates per-search-mode counters for the statistics update
// step of §4.5 ("per-mode counts, average latency, rerank invocation
// counts").
type ModeStats struct {
	Count           int64   `json:"count"`
	AverageLatency  float64 `json:"average_latency_ms"`
	totalLatencyMS  int64
}

// Stats is the retrieval engine's running statistics snapshot (§4.5 step 6).
type Stats struct {
	ByMode            map[domain.SearchMode]ModeStats `json:"by_mode"`
	RerankInvocations int64                            `json:"rerank_invocations"`
	RerankErrors      int64                            `json:"rerank_errors"`
}

// statCounters is the mutable, lock-protected form Stats is derived from.
type statCounters struct {
	mu                sync.Mutex
	byMode            map[domain.SearchMode]*ModeStats
	rerankInvocations int64
	rerankErrors      int64
}

func newStatCounters() *statCounters {
	return &statCounters{byMode: map[domain.SearchMode]*ModeStats{}}
}

func (s *statCounters) recordSearch(mode domain.SearchMode, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byMode[mode]
	if !ok {
		m = &ModeStats{}
		s.byMode[mode] = m
	}
	m.Count++
	m.totalLatencyMS += latency.Milliseconds()
	m.AverageLatency = float64(m.totalLatencyMS) / float64(m.Count)
}

func (s *statCounters) recordRerank(invocations int, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rerankInvocations += int64(invocations)
	if failed {
		s.rerankErrors++
	}
}

func (s *statCounters) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Stats{ByMode: make(map[domain.SearchMode]ModeStats, len(s.byMode))}
	for mode, m := range s.byMode {
		out.ByMode[mode] = *m
	}
	out.RerankInvocations = s.rerankInvocations
	out.RerankErrors = s.rerankErrors
	return out
}
