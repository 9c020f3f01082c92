package httpx

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryBackend keeps token buckets in process memory. Budgets are per
// process, so use RedisBackend when several replicas serve one issuer.
type MemoryBackend struct{}

// NewMemoryBackend returns the in-process backend.
func NewMemoryBackend() MemoryBackend { return MemoryBackend{} }

// NewLimiter returns a token bucket limiter. scope is irrelevant here:
// every call gets its own map.
func (MemoryBackend) NewLimiter(_ string, config RateLimitConfig) Limiter {
	ratePerSecond := float64(config.RequestsPerWindow) / config.Window.Seconds()
	return &memoryLimiter{
		rate:        rate.Limit(ratePerSecond),
		burst:       config.Burst,
		lastCleanup: time.Now(),
	}
}

// memoryLimiter manages rate limiters for different keys
type memoryLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func (rl *memoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	limiter := rl.getLimiter(key)
	if limiter.Allow() {
		return true, 0, nil
	}

	// peek at when the next token lands without spending it
	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return false, delay, nil
}

func (rl *memoryLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	actual, _ := rl.limiters.LoadOrStore(key, limiter)

	rl.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose bucket is full again, at most once
// every five minutes.
func (rl *memoryLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}
	rl.lastCleanup = time.Now()

	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}
