package mapper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/cortexmap/cortex/internal/acquisition/apiprobe"
	"github.com/cortexmap/cortex/internal/acquisition/browser"
	"github.com/cortexmap/cortex/internal/acquisition/discovery"
	"github.com/cortexmap/cortex/internal/acquisition/fetch"
	"github.com/cortexmap/cortex/internal/classify"
	"github.com/cortexmap/cortex/internal/common/urlutil"
	"github.com/cortexmap/cortex/internal/mapbuilder"
	"github.com/cortexmap/cortex/internal/mapmodel"
	"github.com/cortexmap/cortex/internal/metrics"
)

// Request is the Mapper's public contract, mirroring spec.md §4.9's
// MapRequest.
type Request struct {
	Domain        string
	MaxNodes      int
	MaxTimeMS     int
	RespectRobots bool
	NoBrowser     bool
}

// Mapper drives Discovery and the acquisition pipeline for a domain and
// seals the result into a mapmodel.Map. A single Mapper instance is
// shared across concurrent requests; per-domain work is deduplicated via
// an in-process singleflight group, the idiomatic single-process
// replacement for the teacher's Redis-backed LockCoordinator (a
// distributed-lock mechanism this single-process service has no
// distributed system to coordinate across).
type Mapper struct {
	cfg     Config
	fetcher *fetch.Fetcher
	prober  *apiprobe.Prober
	pool    *browser.Pool
	logger  *zap.Logger
	group   singleflight.Group
	metrics *metrics.Collector
}

// New builds a Mapper. pool may be nil, in which case Browser Fallback
// is always skipped (equivalent to every request's NoBrowser=true).
func New(cfg Config, fetcher *fetch.Fetcher, prober *apiprobe.Prober, pool *browser.Pool, logger *zap.Logger) *Mapper {
	cfg.applyDefaults()
	return &Mapper{cfg: cfg, fetcher: fetcher, prober: prober, pool: pool, logger: logger}
}

// SetMetrics attaches a metrics.Collector for pipeline instrumentation
// (Browser Fallback rate). Safe to leave unset.
func (m *Mapper) SetMetrics(c *metrics.Collector) {
	m.metrics = c
}

// Map runs the full Mapper pipeline for req.Domain. Concurrent calls for
// the same normalized domain share one in-flight attempt and all
// receive the same *mapmodel.Map.
func (m *Mapper) Map(ctx context.Context, req Request) (*mapmodel.Map, error) {
	domain, err := urlutil.NormalizeDomain(req.Domain)
	if err != nil {
		return nil, fmt.Errorf("mapper: invalid domain %q: %w", req.Domain, err)
	}

	v, err, _ := m.group.Do(domain, func() (interface{}, error) {
		return m.mapOnce(ctx, req, domain)
	})
	if err != nil {
		return nil, err
	}
	return v.(*mapmodel.Map), nil
}

func (m *Mapper) mapOnce(parent context.Context, req Request, domain string) (*mapmodel.Map, error) {
	maxNodes := req.MaxNodes
	if maxNodes <= 0 {
		maxNodes = m.cfg.MaxNodes
	}
	maxTimeMS := req.MaxTimeMS
	if maxTimeMS <= 0 {
		maxTimeMS = m.cfg.MaxTimeMS
	}

	ctx, cancel := context.WithTimeout(parent, time.Duration(maxTimeMS)*time.Millisecond)
	defer cancel()

	builder := mapbuilder.New(domain)

	disc := discovery.Discover(ctx, m.fetcher, domain, req.RespectRobots, maxNodes)

	pool := m.pool
	if req.NoBrowser {
		pool = nil
	}

	sem := semaphore.NewWeighted(m.cfg.GlobalConcurrency)
	hostSem := semaphore.NewWeighted(m.cfg.PerHostConcurrency)

	results := make([]*pipelineResult, len(disc.Candidates))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, cand := range disc.Candidates {
		i, cand := i, cand
		eg.Go(func() error {
			if err := sem.Acquire(egCtx, 1); err != nil {
				return nil // budget/cancellation: leave this candidate unresolved, not an error
			}
			defer sem.Release(1)
			if err := hostSem.Acquire(egCtx, 1); err != nil {
				return nil
			}
			defer hostSem.Release(1)

			res := acquire(egCtx, m.fetcher, m.prober, pool, "https", domain, cand.URL, m.logger, m.metrics)
			results[i] = res
			return nil
		})
	}
	// errgroup.Wait's error is always nil by construction above; budget
	// expiry surfaces as egCtx cancellation, handled per-candidate.
	_ = eg.Wait()

	partial := ctx.Err() != nil

	for i, res := range results {
		if res == nil {
			partial = true
			continue
		}
		addNode(builder, res, urlDepth(disc.Candidates[i].URL, domain))
	}

	addEdges(builder, results, domain)

	return builder.Seal(partial)
}

func urlDepth(rawURL, domain string) int {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	trimmed = strings.TrimPrefix(trimmed, domain)
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/") + 1
}

func addNode(b *mapbuilder.Builder, res *pipelineResult, depth int) {
	norm, err := urlutil.Normalize(res.FinalURL)
	if err != nil {
		norm = res.FinalURL
	}

	signals := toSignals(res, depth)
	pageType, confidence := classify.Classify(signals)
	features, flags := classify.Encode(signals, pageType)

	if res.Rendered {
		flags |= mapmodel.FlagRendered
	}
	if res.HTTPStatusOK {
		flags |= mapmodel.FlagHTTPStatusOK
	}
	if res.AuthRequired {
		flags |= mapmodel.FlagAuthRequired
	}
	if res.Blocked {
		flags |= mapmodel.FlagBlocked
	}

	b.AddNode(mapbuilder.NodeObservation{
		URL:        norm,
		PageType:   pageType,
		Confidence: confidence,
		Features:   features,
		Flags:      flags,
		Actions:    res.Actions,
	})
}

// addEdges derives link and action edges from each page's discovered
// outbound links and actions, per spec.md §4.9 step 5. Targets never
// added as nodes become unrendered, estimated nodes (step 6) rather
// than being dropped, so the graph still reflects their existence.
func addEdges(b *mapbuilder.Builder, results []*pipelineResult, domain string) {
	for _, res := range results {
		if res == nil || res.Page == nil {
			continue
		}
		from, err := urlutil.Normalize(res.FinalURL)
		if err != nil {
			from = res.FinalURL
		}

		for _, target := range res.Page.NavTargets {
			to, err := urlutil.Normalize(target)
			if err != nil {
				continue
			}
			if !b.HasNode(to) {
				var f mapmodel.Feature
				f.SetOneHot(mapmodel.PageTypeOther)
				b.AddNode(mapbuilder.NodeObservation{
					URL:      to,
					PageType: mapmodel.PageTypeOther,
					Features: f,
					Flags:    mapmodel.FlagEstimated,
				})
			}
			b.AddEdge(mapbuilder.EdgeObservation{From: from, To: to, Kind: mapmodel.EdgeKindLink, Weight: 1.0})
		}

		for i := range res.Actions {
			a := res.Actions[i]
			weight := float32(1.0)
			if a.Category == mapmodel.ActionCategoryAuth || a.Category == mapmodel.ActionCategoryCart {
				weight = 2.0
			}
			b.AddEdge(mapbuilder.EdgeObservation{From: from, To: from, Kind: mapmodel.EdgeKindAction, Weight: weight, Action: &a})
		}
	}
}
