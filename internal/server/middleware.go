package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

const rateLimitPrefix = "ratelimit:"

// withCORS restricts browser access to the single configured origin and
// answers preflight requests.
func (s *Server) withCORS(next http.Handler) http.Handler {
	allowed := s.appCfg.AllowedOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && origin == allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a per-client fixed window counter in Redis. The
// health endpoint is exempt so probes never get throttled.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || s.store == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := rateLimitPrefix + s.clientIP(r)
		n, err := s.store.Incr(r.Context(), key, s.appCfg.RateLimitWindow())
		if err != nil {
			// Redis trouble surfaces on the real operation; do not block here.
			s.logger.Warn("rate limit counter failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if n > int64(s.appCfg.RateLimitTimes) {
			retryAfter := s.appCfg.RateLimitSeconds
			if ttl, err := s.store.KeyTTL(r.Context(), key); err == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP identifies the caller for rate limiting. X-Forwarded-For is
// honored only when the deployment declares a trusted proxy in front.
func (s *Server) clientIP(r *http.Request) string {
	if s.appCfg.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first := strings.TrimSpace(strings.Split(fwd, ",")[0])
			if first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
