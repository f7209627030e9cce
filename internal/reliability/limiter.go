package reliability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/procureflow/agent/internal/orcherr"
)

// bucket is a token-bucket rate limiter for a single provider, refilled
// continuously at rpm/60 tokens per second.
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func newBucket(rpm int) *bucket {
	if rpm <= 0 {
		rpm = 60
	}
	rate := float64(rpm) / 60.0
	burst := rate * 2
	if burst < 1 {
		burst = 1
	}
	return &bucket{
		tokens:     burst,
		maxTokens:  burst,
		refillRate: rate,
		lastRefill: time.Now(),
	}
}

func (b *bucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
}

// tryAcquire consumes one token if available.
func (b *bucket) tryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

const pollInterval = 10 * time.Millisecond

// wait blocks until a token is available or ctx is done.
func (b *bucket) wait(ctx context.Context) error {
	if b.tryAcquire() {
		return nil
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if b.tryAcquire() {
				return nil
			}
		}
	}
}

// defaultMaxQueueDepth caps the number of callers allowed to queue for
// admission to a provider with no explicit MaxQueueDepth configured
// (spec.md §5 "No unbounded queues").
const defaultMaxQueueDepth = 100

// RateLimiter admits calls per provider at its configured
// requests-per-minute rate, queueing excess work up to a per-provider
// cap rather than growing without bound (spec.md §4.3, §5). QueueDepth
// reports how many callers are currently queued or waiting for
// admission.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rpm      map[string]int
	maxDepth map[string]int

	queueMu sync.Mutex
	queue   map[string]int
}

// NewRateLimiter creates a limiter with per-provider RPM limits and
// queue-depth caps. A provider absent from rpm falls back to a 60 RPM
// default; a provider absent from maxDepth (or with a non-positive
// value) falls back to defaultMaxQueueDepth.
func NewRateLimiter(rpm map[string]int, maxDepth map[string]int) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*bucket),
		rpm:      rpm,
		maxDepth: maxDepth,
		queue:    make(map[string]int),
	}
}

func (l *RateLimiter) bucketFor(provider string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[provider]
	if !ok {
		b = newBucket(l.rpm[provider])
		l.buckets[provider] = b
	}
	return b
}

// Wait blocks until provider has available admission capacity or ctx is
// done. If the admission queue for provider is already at its cap,
// Wait returns CodeRateLimited immediately without queueing.
func (l *RateLimiter) Wait(ctx context.Context, provider string) error {
	if err := l.admit(provider); err != nil {
		return err
	}
	defer l.adjustQueueDepth(provider, -1)
	return l.bucketFor(provider).wait(ctx)
}

// QueueDepth returns the number of callers currently waiting for
// admission to provider.
func (l *RateLimiter) QueueDepth(provider string) int {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	return l.queue[provider]
}

func (l *RateLimiter) admit(provider string) error {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	if l.queue[provider] >= l.capFor(provider) {
		return orcherr.New(orcherr.CodeRateLimited, fmt.Sprintf("rate limiter queue depth exceeded for %s", provider))
	}
	l.queue[provider]++
	return nil
}

func (l *RateLimiter) capFor(provider string) int {
	if v, ok := l.maxDepth[provider]; ok && v > 0 {
		return v
	}
	return defaultMaxQueueDepth
}

func (l *RateLimiter) adjustQueueDepth(provider string, delta int) {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	l.queue[provider] += delta
}
