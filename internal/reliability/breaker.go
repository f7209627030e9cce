package reliability

import (
	"sync"
	"time"

	"github.com/procureflow/agent/internal/orcherr"
)

// BreakerState is the externally observable state of a circuit breaker,
// matching the circuit_breaker_state gauge values (spec.md §4.3).
type BreakerState float64

const (
	StateClosed   BreakerState = 0
	StateHalfOpen BreakerState = 0.5
	StateOpen     BreakerState = 1
)

// rollingWindowSize is how many recent outcomes the breaker's error
// ratio is computed over.
const rollingWindowSize = 20

// minSamplesBeforeTrip is the minimum number of outcomes recorded
// before the breaker will consider tripping; avoids one early failure
// opening the breaker at 100% of a near-empty window.
const minSamplesBeforeTrip = 5

// breaker is a rolling error-ratio circuit breaker for a single
// provider. Unlike a simple consecutive-failure counter, it trips when
// the failure ratio over the last rollingWindowSize calls exceeds the
// configured threshold, matching spec.md §4.3's "rolling error-ratio
// breaker" rather than a streak-based one.
type breaker struct {
	mu sync.Mutex

	threshold    float64 // 0-100, percent
	resetTimeout time.Duration

	state        BreakerState
	outcomes     []bool // true = success
	lastTripAt   time.Time
	halfOpenUsed bool
}

func newBreaker(thresholdPercent float64, resetTimeout time.Duration) *breaker {
	if thresholdPercent <= 0 {
		thresholdPercent = 50
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &breaker{
		threshold:    thresholdPercent,
		resetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

// allow reports whether a call may proceed, transitioning open→half-open
// once resetTimeout has elapsed.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.lastTripAt) >= b.resetTimeout {
			b.state = StateHalfOpen
			b.halfOpenUsed = false
		} else {
			return orcherr.New(orcherr.CodeCircuitOpen, "circuit breaker open")
		}
	case StateHalfOpen:
		if b.halfOpenUsed {
			return orcherr.New(orcherr.CodeCircuitOpen, "circuit breaker half-open probe in flight")
		}
		b.halfOpenUsed = true
	}
	return nil
}

// record records the outcome of a call that allow() admitted.
func (b *breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.halfOpenUsed = false
		if success {
			b.state = StateClosed
			b.outcomes = nil
		} else {
			b.trip()
		}
		return
	}

	b.outcomes = append(b.outcomes, success)
	if len(b.outcomes) > rollingWindowSize {
		b.outcomes = b.outcomes[len(b.outcomes)-rollingWindowSize:]
	}
	if len(b.outcomes) < minSamplesBeforeTrip {
		return
	}

	failures := 0
	for _, ok := range b.outcomes {
		if !ok {
			failures++
		}
	}
	ratio := float64(failures) / float64(len(b.outcomes)) * 100
	if ratio > b.threshold {
		b.trip()
	}
}

func (b *breaker) trip() {
	b.state = StateOpen
	b.lastTripAt = time.Now()
	b.outcomes = nil
}

// Open forces the breaker open (operator hook).
func (b *breaker) forceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trip()
}

// Close forces the breaker closed (operator hook).
func (b *breaker) forceClose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.outcomes = nil
}

func (b *breaker) currentState() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// BreakerRegistry owns one breaker per provider.
type BreakerRegistry struct {
	mu            sync.Mutex
	breakers      map[string]*breaker
	threshold     float64
	resetTimeout  time.Duration
}

// NewBreakerRegistry creates a registry using the same threshold/reset
// timeout for every provider it lazily creates breakers for.
func NewBreakerRegistry(thresholdPercent float64, resetTimeout time.Duration) *BreakerRegistry {
	return &BreakerRegistry{
		breakers:     make(map[string]*breaker),
		threshold:    thresholdPercent,
		resetTimeout: resetTimeout,
	}
}

func (r *BreakerRegistry) get(provider string) *breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[provider]
	if !ok {
		b = newBreaker(r.threshold, r.resetTimeout)
		r.breakers[provider] = b
	}
	return b
}

// State returns the current breaker state for provider.
func (r *BreakerRegistry) State(provider string) BreakerState {
	return r.get(provider).currentState()
}

// ForceOpen manually opens the breaker for provider (operator hook).
func (r *BreakerRegistry) ForceOpen(provider string) {
	r.get(provider).forceOpen()
}

// ForceClose manually closes the breaker for provider (operator hook).
func (r *BreakerRegistry) ForceClose(provider string) {
	r.get(provider).forceClose()
}
