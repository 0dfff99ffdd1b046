// Package mapbuilder accumulates per-URL observations gathered by the
// acquisition layer into a sealed mapmodel.Map.
package mapbuilder

import (
	"fmt"
	"sort"
	"time"

	"github.com/cortexmap/cortex/internal/common/urlutil"
	"github.com/cortexmap/cortex/internal/mapmodel"
)

// NodeObservation is everything the Mapper has learned about one URL by
// the time it is ready to be sealed into the graph.
type NodeObservation struct {
	URL        string
	PageType   mapmodel.PageType
	Confidence float32
	Features   mapmodel.Feature
	Flags      mapmodel.NodeFlags
	Actions    []mapmodel.Action
}

// EdgeObservation is one discovered link between two (not-yet-indexed)
// URLs.
type EdgeObservation struct {
	From   string
	To     string
	Kind   mapmodel.EdgeKind
	Weight float32
	Action *mapmodel.Action // nil if traversal requires no action
}

// Builder accumulates observations for a single domain mapping attempt.
// It is not safe for concurrent use; the Mapper serializes writes to one
// Builder per in-flight attempt (see internal/mapper's singleflight group).
type Builder struct {
	domain string
	nodes  map[string]*NodeObservation
	edges  []EdgeObservation
}

// New creates a Builder for domain, which should already be normalized
// via urlutil.NormalizeDomain.
func New(domain string) *Builder {
	return &Builder{
		domain: domain,
		nodes:  make(map[string]*NodeObservation),
	}
}

// AddNode records or overwrites an observation for a normalized URL.
// Later calls for the same URL replace earlier ones, matching the
// Mapper's "higher layer signal wins" resolution order.
func (b *Builder) AddNode(obs NodeObservation) {
	cp := obs
	b.nodes[obs.URL] = &cp
}

// HasNode reports whether url has already been observed.
func (b *Builder) HasNode(url string) bool {
	_, ok := b.nodes[url]
	return ok
}

// AddEdge records a discovered link. Edges referencing URLs never added
// via AddNode are dropped at Seal time rather than erroring, since
// Discovery routinely finds more links than the Mapper chooses to fetch
// (budget/max_nodes caps).
func (b *Builder) AddEdge(e EdgeObservation) {
	b.edges = append(b.edges, e)
}

// NodeCount returns the number of distinct nodes observed so far.
func (b *Builder) NodeCount() int { return len(b.nodes) }

// Seal freezes accumulated observations into an immutable mapmodel.Map.
// Nodes are ordered by normalized URL for determinism (P10); edges are
// grouped by source in that same order and, within a source, sorted by
// (kind, target) to satisfy invariant I3's no-duplicate-triple
// requirement deterministically.
func (b *Builder) Seal(partial bool) (*mapmodel.Map, error) {
	urls := make([]string, 0, len(b.nodes))
	for u := range b.nodes {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	index := make(map[string]uint32, len(urls))
	for i, u := range urls {
		index[u] = uint32(i)
	}

	n := len(urls)
	m := &mapmodel.Map{
		Domain:        b.domain,
		CreatedAt:     time.Now(),
		FormatVersion: mapmodel.FormatVersion,
		DomainHash:    urlutil.Hash(b.domain),
		URL:           make([]string, n),
		PageType:      make([]mapmodel.PageType, n),
		Confidence:    make([]float32, n),
		Features:      make([]mapmodel.Feature, n),
		NodeFlags:     make([]mapmodel.NodeFlags, n),
		ActionSlice:   make([]mapmodel.ActionSlice, n),
	}
	if partial {
		m.Flags |= mapmodel.MapFlagPartial
	}

	type bucket struct {
		edges   []EdgeObservation
		actions []mapmodel.Action
	}
	buckets := make([]bucket, n)

	for i, u := range urls {
		obs := b.nodes[u]
		m.URL[i] = obs.URL
		m.PageType[i] = obs.PageType
		m.Confidence[i] = obs.Confidence
		m.Features[i] = obs.Features
		m.NodeFlags[i] = obs.Flags
		buckets[i].actions = obs.Actions
	}

	for _, e := range b.edges {
		srcIdx, srcOK := index[e.From]
		_, dstOK := index[e.To]
		if !srcOK || !dstOK {
			continue // target never observed (budget/max_nodes cap): drop rather than error
		}
		buckets[srcIdx].edges = append(buckets[srcIdx].edges, e)
	}

	var flatEdges []mapmodel.Edge
	var flatActions []mapmodel.Action
	edgeIndex := make([]uint32, n+1)

	for i := 0; i < n; i++ {
		// node-level actions first, so ActionSlice for this node is
		// contiguous and precedes any action records pulled in by edges.
		// An edge's action_ref indexes relative to this same offset, so
		// it fits an u8 regardless of total graph size.
		offset := uint32(len(flatActions))
		flatActions = append(flatActions, buckets[i].actions...)

		sort.Slice(buckets[i].edges, func(a, bIdx int) bool {
			ea, eb := buckets[i].edges[a], buckets[i].edges[bIdx]
			if ea.Kind != eb.Kind {
				return ea.Kind < eb.Kind
			}
			return index[ea.To] < index[eb.To]
		})

		seen := make(map[mapmodel.EdgeKind]map[uint32]bool)
		for _, e := range buckets[i].edges {
			targetIdx := index[e.To]
			if seen[e.Kind] == nil {
				seen[e.Kind] = make(map[uint32]bool)
			}
			if seen[e.Kind][targetIdx] {
				continue // duplicate (source,target,kind): I3
			}
			seen[e.Kind][targetIdx] = true

			edge := mapmodel.Edge{Target: targetIdx, Weight: e.Weight, Kind: e.Kind}
			if e.Action != nil {
				edge.ActionRef = uint8(len(flatActions) - int(offset))
				edge.HasAction = true
				flatActions = append(flatActions, *e.Action)
			}
			flatEdges = append(flatEdges, edge)
		}
		m.ActionSlice[i] = mapmodel.ActionSlice{Offset: offset, Length: uint32(len(flatActions)) - offset}
		edgeIndex[i+1] = uint32(len(flatEdges))
	}

	m.Edges = flatEdges
	m.Actions = flatActions
	m.EdgeIndex = edgeIndex

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("mapbuilder: sealed map failed validation: %w", err)
	}
	return m, nil
}
