package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter allows maxAttempts requests per client IP within a sliding window
type RateLimiter struct {
	attempts    map[string][]time.Time
	mutex       sync.Mutex
	maxAttempts int
	window      time.Duration
	now         func() time.Time
	done        chan struct{}
	closeOnce   sync.Once
}

// NewRateLimiter creates a new rate limiter. Call Close to stop its cleanup loop.
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
		done:        make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow records an attempt for key and reports whether it is within the limit.
// When it is not, it also returns how long until the next attempt is allowed.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	valid := prune(rl.attempts[key], now.Add(-rl.window))

	if len(valid) >= rl.maxAttempts {
		rl.attempts[key] = valid
		return false, valid[0].Add(rl.window).Sub(now)
	}

	rl.attempts[key] = append(valid, now)
	return true, 0
}

func prune(attempts []time.Time, cutoff time.Time) []time.Time {
	var valid []time.Time
	for _, attempt := range attempts {
		if attempt.After(cutoff) {
			valid = append(valid, attempt)
		}
	}
	return valid
}

// cleanup removes idle clients periodically
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mutex.Lock()
			cutoff := rl.now().Add(-rl.window)
			for key, attempts := range rl.attempts {
				if valid := prune(attempts, cutoff); len(valid) == 0 {
					delete(rl.attempts, key)
				} else {
					rl.attempts[key] = valid
				}
			}
			rl.mutex.Unlock()
		}
	}
}

// Close stops the cleanup loop
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.done) })
}

// Middleware rejects clients over the limit with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := rl.Allow(clientIP(r))
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr, which chi's RealIP has already
// replaced with the forwarded address when present
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
