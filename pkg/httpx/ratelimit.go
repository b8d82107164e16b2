package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aussiebroadwan/healthify/pkg/slogx"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// RateLimits groups the profiles used by the local API.
type RateLimits struct {
	// Strict guards login and MFA (brute force prevention).
	Strict RateLimitConfig
	// Moderate guards writes by a signed-in user.
	Moderate RateLimitConfig
	// Public guards health and read-only endpoints.
	Public RateLimitConfig
}

// DefaultRateLimits returns the built-in profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5},
		Moderate: RateLimitConfig{RequestsPerWindow: 60, Window: time.Minute, Burst: 20},
		Public:   RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	}
}

// RateLimitsFromEnv applies RATELIMIT_{STRICT,MODERATE,PUBLIC}_* overrides
// to the defaults.
func RateLimitsFromEnv() RateLimits {
	l := DefaultRateLimits()
	l.Strict = ParseRateLimitFromEnv("STRICT", l.Strict)
	l.Moderate = ParseRateLimitFromEnv("MODERATE", l.Moderate)
	l.Public = ParseRateLimitFromEnv("PUBLIC", l.Public)
	return l
}

// ParseRateLimitFromEnv reads RATELIMIT_{prefix}_REQUESTS, _WINDOW_SEC and
// _BURST. Missing or non-positive values keep the default.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

func positiveEnvInt(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// KeyExtractor returns the bucket key for a request. An empty key skips
// limiting.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// UserKeyExtractor keys on the signed-in user, falling back to the client IP.
func UserKeyExtractor(r *http.Request) string {
	if id, ok := UserIDFromContext(r.Context()); ok {
		return "user:" + id
	}
	return IPKeyExtractor(r)
}

// limiterSet holds one token bucket per key and evicts idle buckets.
type limiterSet struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func (s *limiterSet) get(key string) *rate.Limiter {
	if l, ok := s.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}

	actual, _ := s.limiters.LoadOrStore(key, rate.NewLimiter(s.rate, s.burst))
	s.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops buckets that have refilled completely, at most once
// every five minutes.
func (s *limiterSet) maybeCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastCleanup) < 5*time.Minute {
		return
	}
	s.lastCleanup = time.Now()

	s.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(s.burst) {
			s.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitMiddleware limits requests per key extracted by keyFn.
func RateLimitMiddleware(cfg RateLimitConfig, keyFn KeyExtractor) Middleware {
	set := &limiterSet{
		rate:        rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			limiter := set.get(key)
			if limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			res := limiter.Reserve()
			retryAfter := max(int(res.Delay().Seconds()), 1)
			res.Cancel()

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", cfg.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", key,
				"retry_after", retryAfter,
			)

			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please try again later.")
		})
	}
}

// RateLimitByIP limits by client IP only.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByUser limits by signed-in user, or IP when there is none.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, UserKeyExtractor)
}
