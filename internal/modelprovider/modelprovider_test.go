package modelprovider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

func TestRegistryResolvesMockEagerly(t *testing.T) {
	registry := NewRegistry()
	factory := NewFactory(registry)

	emb, fallback, err := factory.BuildEmbedding(Spec{Provider: "mock", MaxConcurrentRequests: 2})
	require.NoError(t, err)
	assert.Nil(t, fallback)
	require.NoError(t, emb.Initialize(context.Background()))

	vec, err := emb.EmbedQuery(context.Background(), "hello world")
	require.NoError(t, err)
	assert.NotEmpty(t, vec)
}

func TestRegistryUnsupportedProviderFailsClosed(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.resolveEmbedding("not-a-real-provider")
	require.Error(t, err)
	assert.True(t, ragerrors.Is(err, ragerrors.KindUnsupportedProvider))
}

func TestLocalProvidersFailClosed(t *testing.T) {
	registry := NewRegistry()
	ctor, err := registry.resolveEmbedding("sentence-transformers")
	require.NoError(t, err) // resolves to a constructor...
	_, err = ctor(Spec{})
	require.Error(t, err) // ...that always fails closed.
	assert.True(t, ragerrors.Is(err, ragerrors.KindUnsupportedProvider))
}

func TestAutoDetectProvider(t *testing.T) {
	assert.Equal(t, "openai", AutoDetectProvider(Spec{Provider: "openai"}, "mock"))
	assert.Equal(t, "mock", AutoDetectProvider(Spec{}, "mock"))
	assert.Equal(t, "siliconflow", AutoDetectProvider(Spec{APIKey: "k", BaseURL: "https://api.siliconflow.cn/v1"}, "mock"))
	assert.Equal(t, "anthropic", AutoDetectProvider(Spec{APIKey: "k", BaseURL: "https://api.anthropic.com"}, "mock"))
	assert.Equal(t, "gemini", AutoDetectProvider(Spec{APIKey: "k", BaseURL: "https://generativelanguage.googleapis.com"}, "mock"))
}

func TestFactoryReturnsNoFallbackWhenPrimaryUnresolved(t *testing.T) {
	registry := NewRegistry()
	factory := NewFactory(registry)

	primary, fallback, err := factory.BuildGeneration(Spec{
		Provider:         "not-a-real-provider",
		EnableFallback:   true,
		FallbackProvider: "mock",
	})
	require.Error(t, err) // primary provider does not exist
	assert.Nil(t, primary)
	assert.Nil(t, fallback)
}

func TestFactoryFallbackSwallowsFallbackConstructionErrors(t *testing.T) {
	registry := NewRegistry()
	factory := NewFactory(registry)

	primary, fallback, err := factory.BuildEmbedding(Spec{
		Provider:         "mock",
		EnableFallback:   true,
		FallbackProvider: "also-not-real",
	})
	require.NoError(t, err)
	assert.NotNil(t, primary)
	assert.Nil(t, fallback) // fallback resolution failure is swallowed, not fatal
}

func TestLifecycleInitOnceIsIdempotentAndConcurrencySafe(t *testing.T) {
	calls := 0
	lc := newLifecycle(1, 0, 1)

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			errs <- lc.initOnce(func() error {
				calls++
				return nil
			})
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, domain.ModelLoaded, lc.currentState())
}

func TestLifecycleInitOnceCachesError(t *testing.T) {
	lc := newLifecycle(1, 0, 1)
	err := lc.initOnce(func() error { return assert.AnError })
	require.Error(t, err)
	assert.Equal(t, domain.ModelError, lc.currentState())

	// second call observes the same cached error without re-running fn.
	err2 := lc.initOnce(func() error { t.Fatal("should not be called again"); return nil })
	assert.ErrorIs(t, err2, assert.AnError)
}

func TestLifecycleCheckReadyFailsBeforeInit(t *testing.T) {
	lc := newLifecycle(1, 0, 1)
	err := lc.checkReady()
	require.Error(t, err)
	assert.True(t, ragerrors.Is(err, ragerrors.KindModelInit))
}

func TestLifecycleAcquireEnforcesConcurrencyCap(t *testing.T) {
	lc := newLifecycle(1, 0, 1)
	release1, err := lc.acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = lc.acquire(ctx)
	assert.Error(t, err) // second acquire blocks until ctx deadline since cap is 1

	release1()
}

func TestLifecycleWithRetryHonorsRetryAfter(t *testing.T) {
	lc := newLifecycle(1, 0, 3)
	attempts := 0
	start := time.Now()
	err := lc.withRetry(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return assert.AnError
		}
		return nil
	}, func(error) (time.Duration, bool) { return 10 * time.Millisecond, true })
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestMockRerankingOrdersByTokenOverlap(t *testing.T) {
	reranker, err := NewMockReranking(Spec{MaxConcurrentRequests: 2})
	require.NoError(t, err)
	require.NoError(t, reranker.Initialize(context.Background()))

	scores, err := reranker.Rerank(context.Background(), "golang concurrency patterns",
		[]string{"golang concurrency patterns explained", "a recipe for apple pie"})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Greater(t, scores[0], scores[1])
}

func TestMockGenerationRejectsEmptyPrompt(t *testing.T) {
	gen, err := NewMockGeneration(Spec{MaxConcurrentRequests: 1})
	require.NoError(t, err)
	require.NoError(t, gen.Initialize(context.Background()))

	_, err = gen.Generate(context.Background(), "   ", GenerationParams{})
	require.Error(t, err)
	assert.True(t, ragerrors.Is(err, ragerrors.KindValidation))
}

func TestMetricsSnapshotComputesRates(t *testing.T) {
	var m metricsCounter
	m.recordSuccess(10, 5*time.Millisecond)
	m.recordSuccess(5, 5*time.Millisecond)
	m.recordFailure(5 * time.Millisecond)

	snap := m.snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.SuccessfulRequests)
	assert.Equal(t, int64(1), snap.FailedRequests)
	assert.InDelta(t, 2.0/3.0, snap.SuccessRate, 0.001)
}
