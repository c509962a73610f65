package middleware

import (
	"net/http"
	"slices"
	"strings"
)

// SecurityConfig selects which header set a response gets.
type SecurityConfig struct {
	// IsDevelopment drops HSTS so plain-HTTP local runs keep working.
	IsDevelopment bool
	// PagePathPrefixes serve HTML meant to be framed by third-party sites.
	// They skip the framing and isolation headers and set their own CSP.
	PagePathPrefixes []string
}

type header struct{ name, value string }

var (
	commonHeaders = []header{
		{"X-Content-Type-Options", "nosniff"},
		{"X-XSS-Protection", "0"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()"},
		{"Cache-Control", "no-store"},
	}
	apiOnlyHeaders = []header{
		{"X-Frame-Options", "DENY"},
		{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
		{"Cross-Origin-Opener-Policy", "same-origin"},
		{"Cross-Origin-Resource-Policy", "same-origin"},
	}
	hsts = header{"Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload"}
)

// Security sets hardening headers before the handler runs, so handlers may
// still override any of them.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	isPage := func(path string) bool {
		return slices.ContainsFunc(cfg.PagePathPrefixes, func(p string) bool {
			return strings.HasPrefix(path, p)
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, hd := range commonHeaders {
				h.Set(hd.name, hd.value)
			}
			if !isPage(r.URL.Path) {
				for _, hd := range apiOnlyHeaders {
					h.Set(hd.name, hd.value)
				}
			}
			if !cfg.IsDevelopment {
				h.Set(hsts.name, hsts.value)
			}
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize rejects bodies whose declared length exceeds maxBytes with 413
// and caps the rest with http.MaxBytesReader.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
