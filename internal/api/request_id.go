package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey int

const requestIDKey contextKey = 0

const requestIDHeader = "X-Request-Id"

// maxRequestIDLen caps caller-supplied ids so log lines stay bounded.
const maxRequestIDLen = 128

// RequestIDMiddleware tags every request with an id: the caller's
// X-Request-Id when one is supplied, a fresh UUID otherwise. The id is
// carried on the context, echoed on the response header, and embedded in
// every response body.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the id assigned to the current request, empty when the
// middleware did not run.
func RequestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	if value, ok := r.Context().Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}
