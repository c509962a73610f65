package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flowbot/flowbot/internal/auth"
	"github.com/flowbot/flowbot/internal/cache"
	"github.com/flowbot/flowbot/internal/model"
)

type fakeLimiter struct {
	allow      bool
	err        error
	principals []string
	ips        []string
}

func (f *fakeLimiter) CheckAPIRateLimit(_ context.Context, principal string, _, _ int) (*cache.RateLimitResult, error) {
	f.principals = append(f.principals, principal)
	return f.result()
}

func (f *fakeLimiter) CheckIPRateLimit(_ context.Context, ip string, _, _ int) (*cache.RateLimitResult, error) {
	f.ips = append(f.ips, ip)
	return f.result()
}

func (f *fakeLimiter) result() (*cache.RateLimitResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cache.RateLimitResult{
		Allowed:    f.allow,
		Remaining:  3,
		ResetAt:    time.Now().Add(time.Minute),
		RetryAfter: 7 * time.Second,
	}, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitAPI(t *testing.T) {
	tests := []struct {
		name          string
		limiter       *fakeLimiter
		authCtx       *model.AuthContext
		wantStatus    int
		wantPrincipal string
	}{
		{
			name:          "allowed api key",
			limiter:       &fakeLimiter{allow: true},
			authCtx:       &model.AuthContext{KeyID: "k1", UserID: "u1", RateLimitTier: model.TierFree},
			wantStatus:    http.StatusOK,
			wantPrincipal: "key:k1",
		},
		{
			name:          "session user limited",
			limiter:       &fakeLimiter{allow: false},
			authCtx:       &model.AuthContext{UserID: "u1", RateLimitTier: model.TierFree, Source: model.AuthSourceSession},
			wantStatus:    http.StatusTooManyRequests,
			wantPrincipal: "user:u1",
		},
		{
			name:          "limiter error fails open",
			limiter:       &fakeLimiter{err: errors.New("redis down")},
			authCtx:       &model.AuthContext{KeyID: "k1", RateLimitTier: model.TierPro},
			wantStatus:    http.StatusOK,
			wantPrincipal: "key:k1",
		},
		{
			name:       "unlimited tier skips limiter",
			limiter:    &fakeLimiter{},
			authCtx:    &model.AuthContext{KeyID: "k1", RateLimitTier: model.TierUnlimited},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := RateLimitConfig{Logger: discardLogger(), Limiter: tt.limiter, APIEnabled: true}
			handler := RateLimitAPI(cfg)(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(auth.ContextWithAuth(req.Context(), tt.authCtx))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantPrincipal == "" {
				if len(tt.limiter.principals) != 0 {
					t.Errorf("limiter called for unlimited tier")
				}
				return
			}
			if len(tt.limiter.principals) != 1 || tt.limiter.principals[0] != tt.wantPrincipal {
				t.Errorf("principals = %v, want [%s]", tt.limiter.principals, tt.wantPrincipal)
			}
			if tt.wantStatus == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "7" {
				t.Errorf("Retry-After = %q, want 7", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestRateLimitIP(t *testing.T) {
	limiter := &fakeLimiter{allow: false}
	cfg := RateLimitConfig{Logger: discardLogger(), Limiter: limiter, PublicEnabled: true, PublicRPS: 5, PublicBurst: 10}
	handler := RateLimitIP(cfg)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if len(limiter.ips) != 1 || limiter.ips[0] != "203.0.113.7" {
		t.Errorf("ips = %v", limiter.ips)
	}

	cfg.PublicEnabled = false
	rec = httptest.NewRecorder()
	RateLimitIP(cfg)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("disabled limiter status = %d, want 200", rec.Code)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := map[time.Duration]int{
		0:                       1,
		100 * time.Millisecond:  1,
		time.Second:             1,
		1500 * time.Millisecond: 2,
		7 * time.Second:         7,
	}
	for d, want := range cases {
		if got := retryAfterSeconds(d); got != want {
			t.Errorf("retryAfterSeconds(%s) = %d, want %d", d, got, want)
		}
	}
}
