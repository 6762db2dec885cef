package modelprovider

import (
	"sync/atomic"
	"time"

	"ragcore/internal/domain"
)

// metricsCounter holds the atomic counters backing GetMetrics() (§4.1 item
//5, §5 "Counters in get_metrics() are updated with atomic operations").
// Adopted from the source's RerankingMetrics shape (reranking/base.py),
// generalized from "documents" to "units".
type metricsCounter struct {
	totalRequests      atomic.Int64
	successfulRequests atomic.Int64
	failedRequests     atomic.Int64
	totalProcessingMS  atomic.Int64
	totalUnits         atomic.Int64
}

func (m *metricsCounter) recordSuccess(units int, elapsed time.Duration) {
	m.totalRequests.Add(1)
	m.successfulRequests.Add(1)
	m.totalUnits.Add(int64(units))
	m.totalProcessingMS.Add(elapsed.Milliseconds())
}

func (m *metricsCounter) recordFailure(elapsed time.Duration) {
	m.totalRequests.Add(1)
	m.failedRequests.Add(1)
	m.totalProcessingMS.Add(elapsed.Milliseconds())
}

func (m *metricsCounter) snapshot() domain.Metrics {
	raw := domain.Metrics{
		TotalRequests:         m.totalRequests.Load(),
		SuccessfulRequests:    m.successfulRequests.Load(),
		FailedRequests:        m.failedRequests.Load(),
		TotalProcessingTimeMS: m.totalProcessingMS.Load(),
		TotalUnitsProcessed:   m.totalUnits.Load(),
	}
	return raw.Snapshot()
}
