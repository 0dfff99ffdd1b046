package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// hostLimiter enforces a per-host concurrency cap and, when a robots.txt
// crawl-delay applies, paces requests to that host no faster than the
// declared delay.
type hostLimiter struct {
	maxPerHost int64

	mu      sync.Mutex
	sems    map[string]*semaphore.Weighted
	lastReq map[string]time.Time
	delays  map[string]time.Duration
}

func newHostLimiter(maxPerHost int) *hostLimiter {
	return &hostLimiter{
		maxPerHost: int64(maxPerHost),
		sems:       make(map[string]*semaphore.Weighted),
		lastReq:    make(map[string]time.Time),
		delays:     make(map[string]time.Duration),
	}
}

func (h *hostLimiter) setCrawlDelay(host string, d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delays[host] = d
}

// Acquire blocks until a concurrency slot for host is free and, if a
// crawl-delay is set, until enough time has passed since the last
// request to that host.
func (h *hostLimiter) Acquire(ctx context.Context, host string) (release func(), err error) {
	h.mu.Lock()
	sem, ok := h.sems[host]
	if !ok {
		sem = semaphore.NewWeighted(h.maxPerHost)
		h.sems[host] = sem
	}
	h.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	h.mu.Lock()
	delay := h.delays[host]
	last := h.lastReq[host]
	h.mu.Unlock()

	if delay > 0 {
		wait := delay - time.Since(last)
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				sem.Release(1)
				return nil, ctx.Err()
			}
		}
	}

	h.mu.Lock()
	h.lastReq[host] = time.Now()
	h.mu.Unlock()

	return func() { sem.Release(1) }, nil
}
