// Package ratelimit throttles API clients per remote address. The policy is
// declared in a YAML file so operators can tune limits without a rebuild.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

type Policy struct {
	Enabled           bool     `yaml:"enabled"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
	ExemptPaths       []string `yaml:"exempt_paths"`
}

func DefaultPolicy() Policy {
	return Policy{
		Enabled:           true,
		RequestsPerSecond: 20,
		Burst:             40,
		ExemptPaths:       []string{"/healthz", "/readyz", "/metrics"},
	}
}

func ParsePolicy(input []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(input, &p); err != nil {
		return Policy{}, fmt.Errorf("decode rate limit policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// LoadPolicy reads a policy file. A missing path yields the default policy.
func LoadPolicy(path string) (Policy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPolicy(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read rate limit policy: %w", err)
	}
	return ParsePolicy(raw)
}

func (p Policy) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive, got %v", p.RequestsPerSecond)
	}
	if p.Burst <= 0 {
		return fmt.Errorf("burst must be positive, got %d", p.Burst)
	}
	return nil
}

func (p Policy) exempt(path string) bool {
	for _, e := range p.ExemptPaths {
		if path == e {
			return true
		}
	}
	return false
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter holds one token bucket per remote address. Buckets idle past the
// retention window are dropped so the map does not grow with client churn.
type Limiter struct {
	policy Policy

	mu      sync.Mutex
	clients map[string]*clientLimiter

	retention time.Duration
	now       func() time.Time
}

func New(policy Policy) *Limiter {
	return &Limiter{
		policy:    policy,
		clients:   make(map[string]*clientLimiter),
		retention: 10 * time.Minute,
		now:       time.Now,
	}
}

func (l *Limiter) allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[addr]
	if !ok {
		c = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.policy.RequestsPerSecond), l.policy.Burst),
		}
		l.clients[addr] = c
	}
	c.lastSeen = now

	if len(l.clients) > 1024 {
		l.evictLocked(now)
	}
	return c.limiter.Allow()
}

func (l *Limiter) evictLocked(now time.Time) {
	for addr, c := range l.clients {
		if now.Sub(c.lastSeen) > l.retention {
			delete(l.clients, addr)
		}
	}
}

// Middleware rejects over-limit requests with 429. Disabled policies pass
// everything through untouched.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if !l.policy.Enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.policy.exempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if !l.allow(clientAddr(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
