package modelprovider

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// lifecycle implements the unloaded -> loading -> loaded / error state
// machine shared by every provider instance (§4.1 "Required behavior").
// Initialize is idempotent and safe under concurrent callers: the second
// caller blocks on the same mutex and observes the first caller's outcome.
type lifecycle struct {
	mu    sync.Mutex
	state domain.ModelState
	err   error

	// sem bounds concurrent in-flight requests per instance
	// (max_concurrent_requests, §4.1 item 2).
	sem *semaphore.Weighted

	// minInterval enforces request_interval spacing between calls.
	minInterval time.Duration
	mu2         sync.Mutex
	lastCall    time.Time

	retryAttempts int
}

func newLifecycle(maxConcurrent int, requestIntervalMS int, retryAttempts int) *lifecycle {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &lifecycle{
		state:         domain.ModelUnloaded,
		sem:           semaphore.NewWeighted(int64(maxConcurrent)),
		minInterval:   time.Duration(requestIntervalMS) * time.Millisecond,
		retryAttempts: retryAttempts,
	}
}

// initOnce runs fn at most once across all callers; concurrent callers
// block until the first completes and share its error (§4.1 item 1).
func (l *lifecycle) initOnce(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case domain.ModelLoaded:
		return nil
	case domain.ModelError:
		return l.err
	case domain.ModelLoading:
		// Unreachable under the mutex (Initialize never yields mid-loading
		// state here), kept for clarity of the state machine.
		return l.err
	}

	l.state = domain.ModelLoading
	if err := fn(); err != nil {
		l.state = domain.ModelError
		l.err = err
		return err
	}
	l.state = domain.ModelLoaded
	return nil
}

// checkReady fails fast with the recorded error if the instance previously
// failed to initialize (§4.1 item 1).
func (l *lifecycle) checkReady() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == domain.ModelError {
		return l.err
	}
	if l.state != domain.ModelLoaded {
		return ragerrors.ModelInit("instance not initialized", nil)
	}
	return nil
}

func (l *lifecycle) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = domain.ModelUnloaded
	l.err = nil
}

func (l *lifecycle) currentState() domain.ModelState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// acquire blocks for a worker slot (concurrency cap) and enforces the
// configured request_interval spacing before returning a release function.
func (l *lifecycle) acquire(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if l.minInterval > 0 {
		l.mu2.Lock()
		wait := l.minInterval - time.Since(l.lastCall)
		if wait > 0 {
			l.mu2.Unlock()
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				l.sem.Release(1)
				return nil, ctx.Err()
			}
			l.mu2.Lock()
		}
		l.lastCall = time.Now()
		l.mu2.Unlock()
	}
	return func() { l.sem.Release(1) }, nil
}

// withRetry runs fn, retrying on error with exponential backoff capped at a
// small limit (§4.1 item 2). retryAfter, when non-nil, is consulted after a
// failed attempt to honor an HTTP 429 Retry-After hint.
func (l *lifecycle) withRetry(ctx context.Context, fn func() error, retryAfter func(error) (time.Duration, bool)) error {
	var lastErr error
	attempts := l.retryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		wait := backoffDelay(attempt)
		if retryAfter != nil {
			if d, ok := retryAfter(lastErr); ok {
				wait = d
			}
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

const maxBackoff = 8 * time.Second

func backoffDelay(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * 200 * time.Millisecond
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
