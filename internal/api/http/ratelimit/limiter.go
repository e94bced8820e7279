package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// cleanupInterval is how often idle buckets are swept.
	cleanupInterval = 10 * time.Minute
	// staleAfter is how long a bucket may stay unused before it can be swept.
	staleAfter = 10 * time.Minute
)

// Result describes the outcome of a single Allow call.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// Limit is the configured number of requests per window.
	Limit int
	// Remaining is the approximate number of requests left right now.
	Remaining int
	// ResetAt is when the bucket will be full again.
	ResetAt time.Time
	// RetryAfter is how long a rejected client should wait.
	RetryAfter time.Duration
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	// buckets maps a client key to its bucket.
	buckets map[string]*bucket
	// limit is the refill rate in tokens per second.
	limit rate.Limit
	// burst is the bucket capacity.
	burst int
	// requests is the configured number of requests per window.
	requests int
	// stop terminates the cleanup goroutine.
	stop chan struct{}
	// closeOnce guards stop against double close.
	closeOnce sync.Once
	// mu protects buckets.
	mu sync.Mutex
}

// bucket is a token bucket with its last access time.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter allows requests per window per key, with the given burst.
// It starts a cleanup goroutine that runs until Close.
func NewLimiter(requests int, window time.Duration, burst int) *Limiter {
	l := &Limiter{
		buckets:  make(map[string]*bucket),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    burst,
		requests: requests,
		stop:     make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow consumes one token for key if available.
func (l *Limiter) Allow(key string) Result {
	now := time.Now()

	l.mu.Lock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}

	b.lastSeen = now

	l.mu.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	result := Result{
		Allowed:   allowed,
		Limit:     l.requests,
		Remaining: max(int(tokens), 0),
		ResetAt:   now.Add(l.durationFor(float64(l.burst) - tokens)),
	}

	if !allowed {
		result.RetryAfter = max(l.durationFor(1-tokens), time.Second)
	}

	return result
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() {
		close(l.stop)
	})
}

// Len returns the number of tracked buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.buckets)
}

// durationFor converts a token deficit into refill time.
func (l *Limiter) durationFor(tokens float64) time.Duration {
	if tokens <= 0 || l.limit <= 0 {
		return 0
	}

	return time.Duration(tokens / float64(l.limit) * float64(time.Second))
}

// cleanupLoop sweeps idle buckets until Close is called.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stop:
			return
		}
	}
}

// cleanup drops buckets that are both idle and full.
func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := now.Add(-staleAfter)

	for key, b := range l.buckets {
		if b.lastSeen.Before(threshold) && b.limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
}
