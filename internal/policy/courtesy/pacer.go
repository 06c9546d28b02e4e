// Package courtesy paces detail page fetches: an optional per-host token
// bucket followed by a random pause in a fixed window.
package courtesy

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/vacancy-crawler/internal/metrics"
)

// Config holds pacing configuration.
type Config struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	// MaxRPS caps requests per second per host. Zero disables the cap.
	MaxRPS float64
	Burst  int
}

// DefaultConfig waits between 2s and 5s and sets no rate cap.
func DefaultConfig() Config {
	return Config{MinDelay: 2 * time.Second, MaxDelay: 5 * time.Second}
}

// Pacer is safe for concurrent use by fetch workers.
type Pacer struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	minDelay time.Duration
	maxDelay time.Duration
	// jitter returns a value in [0, 1).
	jitter func() float64
}

// New creates a Pacer. A MaxDelay below MinDelay is raised to MinDelay.
func New(cfg Config) *Pacer {
	r := rate.Limit(cfg.MaxRPS)
	if cfg.MaxRPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	minDelay := max(cfg.MinDelay, 0)
	maxDelay := max(cfg.MaxDelay, minDelay)
	return &Pacer{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
		minDelay: minDelay,
		maxDelay: maxDelay,
		jitter:   rand.Float64,
	}
}

// Wait blocks until rawURL may be fetched and returns the total time spent
// waiting. It returns early with the context error on cancellation.
func (p *Pacer) Wait(ctx context.Context, rawURL string) (time.Duration, error) {
	start := time.Now()
	if err := p.limiterFor(rawURL).Wait(ctx); err != nil {
		return time.Since(start), fmt.Errorf("courtesy rate wait: %w", err)
	}

	delay := p.nextDelay()
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return time.Since(start), fmt.Errorf("courtesy delay: %w", ctx.Err())
		case <-timer.C:
		}
	}
	waited := time.Since(start)
	metrics.ObserveCourtesyDelay(waited)
	return waited, nil
}

func (p *Pacer) nextDelay() time.Duration {
	span := p.maxDelay - p.minDelay
	if span <= 0 {
		return p.minDelay
	}
	return p.minDelay + time.Duration(p.jitter()*float64(span))
}

func (p *Pacer) limiterFor(rawURL string) *rate.Limiter {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	limiter, ok := p.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(p.rate, p.burst)
		p.limiters[host] = limiter
	}
	return limiter
}
