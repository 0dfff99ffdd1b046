// Package browser implements Cortex's Browser Fallback (spec.md §4.7):
// a bounded chromedp context pool invoked when Layers 1-2 return below
// a completeness threshold, with per-instance lifetime/idle/page-count
// recycling and graceful no-op degradation when Chrome is unavailable.
package browser

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

var ErrPoolUnavailable = poolUnavailableError{}

type poolUnavailableError struct{}

func (poolUnavailableError) Error() string { return "browser: no chromium instance available" }

type instance struct {
	allocCtx   context.Context
	allocCancel context.CancelFunc
	browserCtx context.Context
	browserCancel context.CancelFunc
	createdAt  time.Time
	lastUsed   atomic.Int64 // unix nanos
	pagesDone  atomic.Int32
}

func (inst *instance) expired(cfg *Config) bool {
	if time.Since(inst.createdAt) > time.Duration(cfg.MaxLifetimeMin)*time.Minute {
		return true
	}
	lastUsed := time.Unix(0, inst.lastUsed.Load())
	if time.Since(lastUsed) > time.Duration(cfg.MaxIdleMin)*time.Minute {
		return true
	}
	return inst.pagesDone.Load() >= int32(cfg.MaxPages)
}

func (inst *instance) close() {
	inst.browserCancel()
	inst.allocCancel()
}

// Pool manages a bounded set of Chrome instances behind a FIFO queue,
// mirroring the teacher's ChromePool shape.
type Pool struct {
	cfg       Config
	logger    *zap.Logger
	mu        sync.Mutex
	instances []*instance
	queue     chan int
	available bool // false if Chrome could not be launched at all (graceful no-op mode)

	totalRenders  atomic.Int64
	totalRestarts atomic.Int64
}

// New probes for a working Chromium instance and, if found, builds a
// bounded pool. If Chrome cannot be launched at all, the returned Pool
// is still usable — Render always returns ErrPoolUnavailable — so
// callers degrade gracefully rather than failing to start.
func New(cfg Config, logger *zap.Logger) *Pool {
	cfg.applyDefaults()
	size := cfg.poolSize()

	p := &Pool{cfg: cfg, logger: logger, queue: make(chan int, size)}

	for i := 0; i < size; i++ {
		inst, err := p.launch()
		if err != nil && i > 0 {
			logger.Warn("browser: failed to launch further chromium instances, running a smaller pool", zap.Error(err))
			break
		}
		if err != nil {
			logger.Warn("browser: failed to launch chromium instance, degrading to no-op", zap.Error(err))
			p.available = false
			return p
		}
		p.instances = append(p.instances, inst)
		p.queue <- i
	}
	p.available = true
	logger.Info("browser pool initialized", zap.Int("instances", len(p.instances)))
	return p
}

func (p *Pool) launch() (*instance, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if p.cfg.ChromiumPath != "" {
		opts = append(opts, chromedp.ExecPath(p.cfg.ChromiumPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// chromedp lazily launches the binary on first use; Run with an
	// empty action forces the launch now so New() fails fast rather than
	// at the first real Render call.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}

	inst := &instance{
		allocCtx: allocCtx, allocCancel: allocCancel,
		browserCtx: browserCtx, browserCancel: browserCancel,
		createdAt: time.Now(),
	}
	inst.lastUsed.Store(time.Now().UnixNano())
	return inst, nil
}

// Available reports whether the pool has at least one usable instance.
func (p *Pool) Available() bool { return p.available }

// render navigates to rawURL in a pooled Chrome tab and returns the
// rendered DOM's outer HTML, honoring the configured per-page wall
// clock. The exported Render (render.go) wraps this with re-extraction.
func (p *Pool) render(ctx context.Context, rawURL string) (string, error) {
	if !p.available {
		return "", ErrPoolUnavailable
	}

	var id int
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case id = <-p.queue:
	}
	defer func() { p.queue <- id }()

	p.mu.Lock()
	inst := p.instances[id]
	p.mu.Unlock()

	if inst.expired(&p.cfg) {
		inst.close()
		newInst, err := p.launch()
		if err != nil {
			p.logger.Warn("browser: failed to restart expired instance", zap.Error(err))
			return "", err
		}
		p.mu.Lock()
		p.instances[id] = newInst
		p.mu.Unlock()
		inst = newInst
		p.totalRestarts.Add(1)
	}

	pageCtx, cancel := context.WithTimeout(inst.browserCtx, time.Duration(p.cfg.PageTimeout)*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(pageCtx,
		chromedp.Navigate(rawURL),
		chromedp.OuterHTML("html", &html),
	)

	inst.lastUsed.Store(time.Now().UnixNano())
	inst.pagesDone.Add(1)
	p.totalRenders.Add(1)

	return html, err
}

// Shutdown tears down every pooled instance.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, inst := range p.instances {
		inst.close()
	}
}

// Stats reports pool counters for the status RPC.
type Stats struct {
	Instances     int
	TotalRenders  int64
	TotalRestarts int64
	Available     bool
}

func (p *Pool) Stats() Stats {
	return Stats{
		Instances:     len(p.instances),
		TotalRenders:  p.totalRenders.Load(),
		TotalRestarts: p.totalRestarts.Load(),
		Available:     p.available,
	}
}
