// Package ratelimit caps form submissions per client in fixed one-minute windows.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

// Limiter counts requests per client key, usually the client IP.
type Limiter struct {
	limit   int
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	windows map[string]*clientWindow

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

type clientWindow struct {
	start time.Time
	seen  time.Time
	count int
}

type Config struct {
	RequestsPerMinute int
	// CleanupInterval is how often idle clients are forgotten.
	CleanupInterval time.Duration
	// IdleTTL is how long a client may stay silent before being forgotten.
	IdleTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		IdleTTL:           10 * time.Minute,
	}
}

// NewLimiter starts the idle-client sweeper; call Stop to end it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}

	l := &Limiter{
		limit:   cfg.RequestsPerMinute,
		idleTTL: cfg.IdleTTL,
		now:     time.Now,
		windows: make(map[string]*clientWindow),
		stop:    make(chan struct{}),
	}
	go l.sweep(cfg.CleanupInterval)
	return l
}

// Allow reports whether a request from key fits in the current window.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.take(key)
	return ok
}

// take records one request and, when it is refused, how long until the window resets.
func (l *Limiter) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= window {
		l.windows[key] = &clientWindow{start: now, seen: now, count: 1}
		return true, 0
	}

	w.seen = now
	w.count++
	if w.count <= l.limit {
		return true, 0
	}
	l.rejected.Add(1)
	return false, w.start.Add(window).Sub(now)
}

func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.forgetIdle()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) forgetIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	for key, w := range l.windows {
		if w.seen.Before(cutoff) {
			delete(l.windows, key)
		}
	}
}

// Stop ends the sweeper. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

type Stats struct {
	Rejected int64
	Clients  int
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	clients := len(l.windows)
	l.mu.Unlock()
	return Stats{Rejected: l.rejected.Load(), Clients: clients}
}

// Middleware limits requests whose method is in methods (all methods when empty).
// Refused requests carry Retry-After; onLimit renders them, nil writes a plain 429.
func (l *Limiter) Middleware(clientKey func(*http.Request) string, onLimit http.HandlerFunc, methods ...string) func(http.Handler) http.Handler {
	limited := make(map[string]bool, len(methods))
	for _, m := range methods {
		limited[m] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(limited) > 0 && !limited[r.Method] {
				next.ServeHTTP(w, r)
				return
			}
			ok, wait := l.take(clientKey(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
