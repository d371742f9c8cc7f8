package gateway

import (
	"sync"

	"github.com/yichenlu/sensereader/internal/metrics"
	"golang.org/x/time/rate"
)

// limiterPool holds one token bucket per subject
type limiterPool struct {
	perSec float64
	burst  int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newLimiterPool(perSec float64, burst int) *limiterPool {
	if perSec <= 0 {
		perSec = 20
	}
	if burst <= 0 {
		burst = int(perSec) * 2
	}
	return &limiterPool{
		perSec:   perSec,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (p *limiterPool) allow(subject string) bool {
	p.mu.Lock()
	limiter, ok := p.limiters[subject]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(p.perSec), p.burst)
		p.limiters[subject] = limiter
	}
	p.mu.Unlock()

	if !limiter.Allow() {
		metrics.RateLimited.Inc()
		return false
	}
	return true
}
