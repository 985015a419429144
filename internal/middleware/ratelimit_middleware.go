package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/photoverify_api/internal/utils"
)

// WindowCounter counts hits per key inside a fixed window.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter allows at most limit requests per IP per window. The shared counter is
// normally Redis; when it fails the limiter falls back to process-local counts.
type RateLimiter struct {
	counter  WindowCounter
	fallback *MemoryCounter
	prefix   string
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a limiter. A nil counter uses process-local counts only.
func NewRateLimiter(counter WindowCounter, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counter:  counter,
		fallback: NewMemoryCounter(),
		prefix:   prefix,
		limit:    limit,
		window:   window,
	}
}

// Allow records a hit for ip and reports whether it is within the limit.
func (r *RateLimiter) Allow(ctx context.Context, ip string) bool {
	if r.limit <= 0 {
		return true
	}
	key := "ratelimit:" + r.prefix + ":" + ip

	var n int64
	var err error
	if r.counter != nil {
		n, err = r.counter.IncrWindow(ctx, key, r.window)
		if err != nil {
			log.Warn().Err(err).Str("ip", ip).Msg("Rate limit counter unavailable, using local counts")
		}
	}
	if r.counter == nil || err != nil {
		n, _ = r.fallback.IncrWindow(ctx, key, r.window)
	}
	return n <= int64(r.limit)
}

// Middleware rejects requests over the limit with 429.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.Request.Context(), c.ClientIP()) {
			c.Header("Retry-After", strconv.Itoa(int(r.window.Seconds())))
			utils.Error(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}

// MemoryCounter is a process-local WindowCounter.
type MemoryCounter struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo
	now      func() time.Time
}

type attemptInfo struct {
	count   int64
	firstAt time.Time
	window  time.Duration
}

// NewMemoryCounter creates an empty MemoryCounter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		attempts: make(map[string]*attemptInfo),
		now:      time.Now,
	}
}

// IncrWindow counts a hit, resetting the count once its window has expired.
func (m *MemoryCounter) IncrWindow(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	info, exists := m.attempts[key]
	if !exists || now.Sub(info.firstAt) >= info.window {
		m.attempts[key] = &attemptInfo{count: 1, firstAt: now, window: window}
		return 1, nil
	}
	info.count++
	return info.count, nil
}

// Cleanup drops expired windows every interval until ctx is canceled.
func (m *MemoryCounter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (m *MemoryCounter) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, info := range m.attempts {
		if now.Sub(info.firstAt) >= info.window {
			delete(m.attempts, key)
		}
	}
}

// Fallback exposes the local counter so its cleanup loop can be started.
func (r *RateLimiter) Fallback() *MemoryCounter {
	return r.fallback
}
