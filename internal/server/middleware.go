package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Middleware wraps a handler
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}

// CORS allows the listed origins, comma separated, or every origin with "*".
func CORS(allowed string) Middleware {
	allowAll := strings.TrimSpace(allowed) == "*"
	origins := map[string]bool{}
	for _, o := range strings.Split(allowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || origins[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Mcp-Session-Id")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type tokenBucket struct {
	tokens int
	last   time.Time
}

// RateLimit allows n requests per interval per client IP.
func RateLimit(n int, per time.Duration) Middleware {
	var mu sync.Mutex
	buckets := make(map[string]*tokenBucket)

	allow := func(ip string, now time.Time) bool {
		mu.Lock()
		defer mu.Unlock()

		b := buckets[ip]
		if b == nil {
			b = &tokenBucket{tokens: n, last: now}
			buckets[ip] = b
		}
		if add := int(now.Sub(b.last) / per); add > 0 {
			b.tokens = min(n, b.tokens+add)
			b.last = b.last.Add(time.Duration(add) * per)
		}
		if b.tokens <= 0 {
			return false
		}
		b.tokens--
		return true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !allow(ip, time.Now()) {
				WriteErrorMessage(w, http.StatusTooManyRequests, "Demasiadas solicitudes")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
