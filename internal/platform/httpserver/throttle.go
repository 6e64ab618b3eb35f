package httpserver

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/discussion-platform/internal/platform/api"
)

// ThrottleConfig is a token bucket per client address.
type ThrottleConfig struct {
	RPS   float64
	Burst int
	// IdleTTL evicts buckets for clients not seen for this long.
	IdleTTL time.Duration
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Throttle rejects requests with 429 once a client exhausts its bucket.
// It protects the process, not the per-user quotas of the discussion engine.
type Throttle struct {
	cfg ThrottleConfig
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*bucket
	swept   time.Time
}

func NewThrottle(cfg ThrottleConfig) *Throttle {
	if cfg.RPS <= 0 {
		cfg.RPS = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 40
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &Throttle{cfg: cfg, now: time.Now, clients: make(map[string]*bucket)}
}

func (t *Throttle) Allow(key string) bool {
	now := t.now()

	t.mu.Lock()
	if now.Sub(t.swept) > t.cfg.IdleTTL {
		for k, b := range t.clients {
			if now.Sub(b.seen) > t.cfg.IdleTTL {
				delete(t.clients, k)
			}
		}
		t.swept = now
	}
	b, ok := t.clients[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(t.cfg.RPS), t.cfg.Burst)}
		t.clients[key] = b
	}
	b.seen = now
	t.mu.Unlock()

	return b.lim.AllowN(now, 1)
}

func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			api.RateLimited(w, "THROTTLED", "too many requests", RequestIDFromContext(r.Context()), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
