package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is the process-local fallback used when Redis is not
// configured. It only bounds per-instance load; horizontally scaled
// deployments should run the Redis limiter instead.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
}

type visitor struct {
	count     int
	lastReset time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
	}

	go l.cleanup()
	return l
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	v, exists := l.visitors[key]

	if !exists {
		l.visitors[key] = &visitor{count: 1, lastReset: now}
		return true, nil
	}

	if now.Sub(v.lastReset) > l.window {
		v.count = 1
		v.lastReset = now
		return true, nil
	}

	v.count++
	return v.count <= l.limit, nil
}

func (l *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, v := range l.visitors {
			if now.Sub(v.lastReset) > l.window*2 {
				delete(l.visitors, key)
			}
		}
		l.mu.Unlock()
	}
}
