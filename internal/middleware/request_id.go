// Package middleware holds the HTTP middleware of the builder API: request
// correlation, access logging, authentication, scopes, rate limits and
// hardening headers.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Correlation headers, echoed on every response.
const (
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-ID"
)

// maxInboundIDLength bounds client supplied request and trace ids.
const maxInboundIDLength = 128

type correlationKey int

const (
	requestIDKey correlationKey = iota
	traceIDKey
)

// RequestID tags the request with an id, reusing a well-formed inbound
// X-Request-ID and otherwise minting a UUID. A valid X-Trace-ID is carried
// through unchanged.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validInboundID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)

		if trace := r.Header.Get(TraceIDHeader); validInboundID(trace) {
			w.Header().Set(TraceIDHeader, trace)
			ctx = context.WithValue(ctx, traceIDKey, trace)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validInboundID accepts visible ASCII only, so ids are safe to echo in
// headers and logs.
func validInboundID(id string) bool {
	if id == "" || len(id) > maxInboundIDLength {
		return false
	}
	for _, c := range []byte(id) {
		if c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}

// GetRequestID returns the request id, or "" outside RequestID.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetTraceID returns the inbound trace id, if any.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}
