package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lumina-chat/lumina-backend/pkg/clientip"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterEntryTTL        = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// ipLimiterPool keeps one token bucket per client IP, with a janitor that
// drops idle entries.
type ipLimiterPool struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	cleanup bool

	limit rate.Limit
	burst int
}

func newIPLimiterPool(limit rate.Limit, burst int) *ipLimiterPool {
	return &ipLimiterPool{
		entries: make(map[string]*limiterEntry),
		limit:   limit,
		burst:   burst,
	}
}

func (p *ipLimiterPool) get(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startCleanupOnce()

	e, ok := p.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.entries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func (p *ipLimiterPool) startCleanupOnce() {
	if p.cleanup {
		return
	}
	p.cleanup = true
	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			p.mu.Lock()
			now := time.Now()
			for ip, e := range p.entries {
				if now.Sub(e.lastUse) > limiterEntryTTL {
					delete(p.entries, ip)
				}
			}
			p.mu.Unlock()
		}
	}()
}

// Global: 5 req/s, burst 20. Auth: 1 req per 5s, burst 2, sign-in routes
// only. History: 30/min, burst 20, chat history only (rapid conversation
// switching should not trip it).
var (
	globalLimiters  = newIPLimiterPool(rate.Limit(5), 20)
	authLimiters    = newIPLimiterPool(rate.Every(5*time.Second), 2)
	historyLimiters = newIPLimiterPool(rate.Limit(0.5), 20)
)

var authLimitedPaths = map[string]bool{
	"/api/auth/signin":          true,
	"/api/auth/signup":          true,
	"/api/settings/pin/verify":  true,
	"/api/settings/pin/recover": true,
}

func tooManyRequests(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}

// GlobalRateLimit limits every request per IP. Returns 429 when exceeded.
func GlobalRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientip.RealClientIP(r)
		if !globalLimiters.get(ip).Allow() {
			tooManyRequests(w, "Too many requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthRateLimit applies a stricter per-IP limit to the credential and PIN
// endpoints. Use after GlobalRateLimit.
func AuthRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authLimitedPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientip.RealClientIP(r)
		if !authLimiters.get(ip).Allow() {
			tooManyRequests(w, "Too many attempts. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HistoryRateLimit throttles GET /api/chat/history per IP.
func HistoryRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/chat/history" {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientip.RealClientIP(r)
		if !historyLimiters.get(ip).Allow() {
			tooManyRequests(w, "Too many history requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
