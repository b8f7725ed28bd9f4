package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/lc/dnsq/internal/log"
)

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID keeps a caller supplied X-Request-ID or assigns a new one,
// and echoes it on the response.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			log.Debug("rate limited", "request_id", RequestID(r.Context()), "remote", r.RemoteAddr)
			writeJSON(w, http.StatusTooManyRequests, Envelope{Code: CodeError, Msg: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorize requires a valid bearer token when a secret is configured.
func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.secret) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := bearer(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, Envelope{Code: CodeError, Msg: "missing bearer token"})
			return
		}
		if _, err := VerifyToken(s.secret, raw); err != nil {
			log.Debug("invalid token", "request_id", RequestID(r.Context()), "error", err)
			writeJSON(w, http.StatusUnauthorized, Envelope{Code: CodeError, Msg: "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
