package server

import (
	"fmt"
	"net"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/wfunc/sololeveling/config"
)

// ipLimiter keeps one token bucket per client address. The least recently
// seen clients are evicted once maxClients is reached.
type ipLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

func newIPLimiter(cfg config.RateLimitConfig) (*ipLimiter, error) {
	if cfg.RequestsPerMinute <= 0 || cfg.Burst <= 0 {
		return nil, fmt.Errorf("rate limit: requests_per_minute and burst must be positive, got %d and %d", cfg.RequestsPerMinute, cfg.Burst)
	}
	cache, err := lru.New[string, *rate.Limiter](cfg.MaxClients)
	if err != nil {
		return nil, err
	}
	return &ipLimiter{
		limiters: cache,
		limit:    rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute)),
		burst:    cfg.Burst,
	}, nil
}

func (l *ipLimiter) allow(key string) bool {
	lim, ok := l.limiters.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		// a concurrent first request may have stored one already
		if prev, found, _ := l.limiters.PeekOrAdd(key, lim); found {
			lim = prev
		}
	}
	return lim.Allow()
}

func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeMessage(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
