package middleware

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter tracks a token bucket per client IP. Buckets refill at a
// fixed rate and cap at the burst size, so short spikes pass while
// sustained hammering of the checkout or enquiry endpoints does not.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	refill   float64
	burst    float64
}

type visitor struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter allows refill requests per second with the given burst
// per IP. A background sweep drops buckets idle for more than ten minutes.
func NewRateLimiter(refill float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		refill:   refill,
		burst:    float64(burst),
	}
	go rl.sweep(5 * time.Minute)
	return rl
}

// Allow reports whether a request from ip may proceed, consuming a token
// when it does.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v := rl.visitors[ip]
	if v == nil {
		rl.visitors[ip] = &visitor{tokens: rl.burst - 1, lastSeen: now}
		return true
	}

	v.tokens += now.Sub(v.lastSeen).Seconds() * rl.refill
	if v.tokens > rl.burst {
		v.tokens = rl.burst
	}
	v.lastSeen = now

	if v.tokens < 1 {
		return false
	}
	v.tokens--
	return true
}

func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		stale := time.Now().Add(-10 * time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if v.lastSeen.Before(stale) {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit rejects requests over the per-IP budget with 429.
func RateLimit(refill float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(refill, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// chi's RealIP middleware rewrites RemoteAddr before we
			// get here; the header check covers bare stdlib servers.
			ip := r.RemoteAddr
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			if !limiter.Allow(ip) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
