package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"go-blog-api/pkg/apierror"
)

const authPathPrefix = "/auth/"

type clientLimiter struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware keeps a token bucket per client IP. The /auth routes get
// a separate, stricter bucket. A limit of zero or less disables that bucket.
type RateLimitMiddleware struct {
	generalRPM int
	authRPM    int
	mu         sync.Mutex
	clients    map[string]*clientLimiter
}

func NewRateLimitMiddleware(generalRPM int, authRPM int) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		clients:    map[string]*clientLimiter{},
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := m.getLimiter(extractClientIP(r))

		target := limiter.general
		if strings.HasPrefix(strings.ToLower(r.URL.Path), authPathPrefix) {
			target = limiter.auth
		}

		if target != nil && !target.Allow() {
			w.Header().Set("Retry-After", "60")
			writeAPIError(w, apierror.New(apierror.CodeRateLimited, "Too many requests", "", http.StatusTooManyRequests))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.clients[clientIP]; exists {
		limiter.lastSeen = time.Now()
		m.gcLocked()
		return limiter
	}

	created := &clientLimiter{
		general:  newLimiter(m.generalRPM),
		auth:     newLimiter(m.authRPM),
		lastSeen: time.Now(),
	}
	m.clients[clientIP] = created
	m.gcLocked()

	return created
}

func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
}

func (m *RateLimitMiddleware) gcLocked() {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

func extractClientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	realIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}

	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}

	return r.RemoteAddr
}
