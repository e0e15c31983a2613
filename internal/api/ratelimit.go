package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Per-IP request budgets over a rolling hour.
const (
	submitPerHour    = 5
	recommendPerHour = 10
	chatPerHour      = 30
)

// ipLimiter hands out one token-bucket limiter per client IP. The bucket
// refills at budget/hour with a burst of the full budget, which approximates
// a rolling-hour window without storing timestamps. Idle entries are pruned.
type ipLimiter struct {
	perHour int

	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perHour int) *ipLimiter {
	l := &ipLimiter{
		perHour: perHour,
		clients: make(map[string]*clientBucket),
	}
	go l.pruneLoop()
	return l
}

// Allow reports whether the IP has budget left and spends one unit if so.
func (l *ipLimiter) Allow(ip string) bool {
	l.mu.Lock()
	b, ok := l.clients[ip]
	if !ok {
		b = &clientBucket{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perHour)/3600.0), l.perHour),
		}
		l.clients[ip] = b
	}
	b.lastSeen = time.Now()
	l.mu.Unlock()
	return b.limiter.Allow()
}

func (l *ipLimiter) pruneLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-2 * time.Hour)
		l.mu.Lock()
		for ip, b := range l.clients {
			if b.lastSeen.Before(cutoff) {
				delete(l.clients, ip)
			}
		}
		l.mu.Unlock()
	}
}

// limit wraps a handler with one limiter, answering 429 when exhausted.
func limit(l *ipLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			http.Error(w, `{"error":"rate limit exceeded, try again later"}`, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// clientIP takes the first X-Forwarded-For hop when present, falling back to
// the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
