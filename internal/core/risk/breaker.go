package risk

import (
	"sync"

	"kalshi-sniper/internal/telemetry"
)

// DefaultBreakerThreshold trips the breaker after this many consecutive
// failures.
const DefaultBreakerThreshold = 3

// CircuitBreaker is a two-state guard {closed, open} around an unreliable
// operation. Consecutive failures trip it; any success resets the count.
// There is no timed half-open probe — reopening is an operator decision.
type CircuitBreaker struct {
	mu        sync.Mutex
	name      string
	threshold int
	failures  int
	open      bool
}

func NewCircuitBreaker(name string, threshold int) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	return &CircuitBreaker{name: name, threshold: threshold}
}

// RecordFailure counts a failure and trips the breaker at the threshold.
func (cb *CircuitBreaker) RecordFailure(reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.open {
		return
	}
	if cb.failures >= cb.threshold {
		cb.open = true
		telemetry.Errorf("breaker %s: OPEN after %d consecutive failures (last: %s)",
			cb.name, cb.failures, reason)
		return
	}
	telemetry.Warnf("breaker %s: failure %d/%d: %s", cb.name, cb.failures, cb.threshold, reason)
}

// RecordSuccess resets the failure count. Does not close an open breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.open
}

// Reset closes the breaker and clears the count. Operator-initiated.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.open = false
	cb.failures = 0
	telemetry.Infof("breaker %s: reset to closed", cb.name)
}
