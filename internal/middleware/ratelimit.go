package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flowbot/flowbot/internal/auth"
	"github.com/flowbot/flowbot/internal/cache"
)

// RateLimiter takes tokens from per-principal and per-IP buckets.
type RateLimiter interface {
	CheckAPIRateLimit(ctx context.Context, principal string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig configures both limiters. Limiter errors fail open.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter
	// Per API key, or per user for session tokens.
	APIEnabled bool
	// Per client IP on public endpoints.
	PublicEnabled bool
	PublicRPS     int
	PublicBurst   int
}

// RateLimitAPI limits authenticated callers by their tier. It runs after Auth.
func RateLimitAPI(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.AuthFromContext(r.Context())
			if !cfg.APIEnabled || principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			limit := principal.Limit()
			if limit.Unlimited() {
				next.ServeHTTP(w, r)
				return
			}

			bucket := cache.PrincipalKey(principal)
			result, err := cfg.Limiter.CheckAPIRateLimit(r.Context(), bucket, limit.RequestsPerMinute, limit.Burst)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("principal", bucket),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, limit.RequestsPerMinute, result.Remaining, result.ResetAt)
			if !result.Allowed {
				reject(w, r, cfg.Logger, result, slog.String("type", "api"), slog.String("principal", bucket))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIP limits anonymous callers of public endpoints per client IP.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.PublicEnabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), ip, cfg.PublicRPS, cfg.PublicBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("ip", ip),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				reject(w, r, cfg.Logger, result, slog.String("type", "public"), slog.String("ip", ip))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, logger *slog.Logger, result *cache.RateLimitResult, attrs ...slog.Attr) {
	wait := retryAfterSeconds(result.RetryAfter)

	attrs = append(attrs,
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Int("retry_after_seconds", wait),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	logger.LogAttrs(r.Context(), slog.LevelWarn, "rate limit exceeded", attrs...)

	w.Header().Set("Retry-After", strconv.Itoa(wait))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", wait))
}

// retryAfterSeconds rounds up so clients never retry before a token exists.
func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(max(remaining, 0), 10))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
