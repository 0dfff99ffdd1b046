package service

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cortexmap/cortex/internal/mapcache"
	"github.com/cortexmap/cortex/internal/mapmodel"
	"github.com/cortexmap/cortex/internal/mapper"
	"github.com/cortexmap/cortex/internal/metrics"
	"github.com/cortexmap/cortex/internal/nav"
)

// Version is reported by the status RPC.
const Version = "0.1.0"

// Service is the single value encapsulating every piece of global state
// the daemon needs (spec.md §9's "Global state" design note: socket
// path, data dir, mapper, cache all live here explicitly rather than as
// package-level singletons).
type Service struct {
	mapper    *mapper.Mapper
	cache     *mapcache.Cache
	logger    *zap.Logger
	startedAt time.Time
	metrics   *metrics.Collector
}

// New builds a Service around an already-constructed Mapper and Cache.
func New(m *mapper.Mapper, cache *mapcache.Cache, logger *zap.Logger) *Service {
	return &Service{mapper: m, cache: cache, logger: logger, startedAt: time.Now()}
}

// SetMetrics attaches a metrics.Collector for RPC instrumentation. Safe to
// leave unset: a nil collector simply disables metric recording.
func (s *Service) SetMetrics(c *metrics.Collector) {
	s.metrics = c
}

func (s *Service) mapFor(domain string) (*mapmodel.Map, *Error) {
	m, _, exists := s.cache.Get(domain)
	if !exists {
		return nil, newError(CodeUnknownDomain, "no cached map for domain "+domain+"; call map first")
	}
	return m, nil
}

func (s *Service) indexFor(domain string) (*nav.Index, *Error) {
	m, cerr := s.mapFor(domain)
	if cerr != nil {
		return nil, cerr
	}
	return nav.BuildIndex(m), nil
}

func parseDim(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= mapmodel.FeatureDims {
		return 0, false
	}
	return n, true
}

// classifyMapperError maps a Mapper failure onto the §6/§7 error
// taxonomy. The Mapper itself never distinguishes DNS/Forbidden/Timeout
// at its own boundary (those are fetch.FailureKind values recorded
// per-node, not request-level failures) so a generic mapping failure
// surfaces as Internal; a context deadline is handled before this is
// ever reached since the Mapper seals a partial Map instead of erroring.
func classifyMapperError(err error) *Error {
	return newError(CodeInternal, err.Error())
}
