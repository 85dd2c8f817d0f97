// Package ratelim throttles requests per client IP.
package ratelim

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"cafehub/apperr"
	"cafehub/utils"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	// trusted proxies may name the client in X-Forwarded-For
	trusted map[string]bool
}

// NewRateLimiter allows perMinute requests per IP with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
		trusted:  map[string]bool{},
	}
}

// TrustProxies lists the reverse proxies whose X-Forwarded-For is honoured.
func (rl *RateLimiter) TrustProxies(ips ...string) *RateLimiter {
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			rl.trusted[ip] = true
		}
	}
	return rl
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// Sweep forgets visitors idle for longer than the idle window.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.idle)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

// Janitor sweeps every interval until stop is closed.
func (rl *RateLimiter) Janitor(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			rl.Sweep()
		case <-stop:
			return
		}
	}
}

// clientIP keys on the peer address. Behind a trusted proxy it walks
// X-Forwarded-For from the right and takes the first hop that is not itself
// a trusted proxy, so a client cannot pick its own key.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !rl.trusted[host] {
		return host
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" || rl.trusted[hop] {
			continue
		}
		if net.ParseIP(hop) == nil {
			break
		}
		return hop
	}
	return host
}

func (rl *RateLimiter) Limit(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !rl.getLimiter(rl.clientIP(r)).Allow() {
			w.Header().Set("Retry-After", "60")
			utils.RespondWithAppError(w, apperr.New(apperr.KindRateLimited, "too many requests, try again later"))
			return
		}
		next(w, r, ps)
	}
}
