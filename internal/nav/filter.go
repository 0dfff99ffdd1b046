package nav

import (
	"sort"

	"github.com/cortexmap/cortex/internal/mapmodel"
)

// DimRange constrains one feature dimension to [Min, Max].
type DimRange struct {
	Dim int
	Min float32
	Max float32
}

// SortDirection controls NodeQuery.OrderBy.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// NodeQuery is the filter() request shape (spec.md §4.10).
type NodeQuery struct {
	PageTypes   []mapmodel.PageType // empty means "all"
	Ranges      []DimRange
	Flags       mapmodel.NodeFlags // required subset; zero means "no constraint"
	OrderByDim  int                 // feature dimension to sort by; -1 sorts by node index only
	Direction   SortDirection
	Limit       int // <= 0 means unbounded
}

// NodeMatch is one filter() result row.
type NodeMatch struct {
	Index      uint32
	URL        string
	PageType   mapmodel.PageType
	Confidence float32
	Features   mapmodel.Feature
	Flags      mapmodel.NodeFlags
}

// Index wraps a sealed Map with a prebuilt per-PageType inverted list so
// repeated filter() calls avoid a full node scan for the common
// page-type-constrained case.
type Index struct {
	m        *mapmodel.Map
	byType   map[mapmodel.PageType][]uint32
}

// BuildIndex constructs the per-PageType inverted list once per Map.
func BuildIndex(m *mapmodel.Map) *Index {
	idx := &Index{m: m, byType: make(map[mapmodel.PageType][]uint32)}
	for i, pt := range m.PageType {
		idx.byType[pt] = append(idx.byType[pt], uint32(i))
	}
	return idx
}

// Filter runs q against the Map, returning deterministically ordered
// matches: primary sort by (OrderByDim, Direction) when OrderByDim >= 0,
// then always by ascending node index as the tie-break (spec.md §4.10,
// P8).
func (idx *Index) Filter(q NodeQuery) []NodeMatch {
	var candidates []uint32
	if len(q.PageTypes) == 0 {
		candidates = make([]uint32, idx.m.NodeCount())
		for i := range candidates {
			candidates[i] = uint32(i)
		}
	} else {
		seen := make(map[uint32]bool)
		for _, pt := range q.PageTypes {
			for _, i := range idx.byType[pt] {
				if !seen[i] {
					seen[i] = true
					candidates = append(candidates, i)
				}
			}
		}
		sort.Slice(candidates, func(a, b int) bool { return candidates[a] < candidates[b] })
	}

	matches := make([]NodeMatch, 0, len(candidates))
	for _, i := range candidates {
		if q.Flags != 0 && !idx.m.NodeFlags[i].Has(q.Flags) {
			continue
		}
		if !inRanges(idx.m.Features[i], q.Ranges) {
			continue
		}
		matches = append(matches, NodeMatch{
			Index:      i,
			URL:        idx.m.URL[i],
			PageType:   idx.m.PageType[i],
			Confidence: idx.m.Confidence[i],
			Features:   idx.m.Features[i],
			Flags:      idx.m.NodeFlags[i],
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if q.OrderByDim >= 0 && q.OrderByDim < mapmodel.FeatureDims {
			va, vb := matches[a].Features[q.OrderByDim], matches[b].Features[q.OrderByDim]
			if va != vb {
				if q.Direction == Descending {
					return va > vb
				}
				return va < vb
			}
		}
		return matches[a].Index < matches[b].Index
	})

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches
}

func inRanges(f mapmodel.Feature, ranges []DimRange) bool {
	for _, r := range ranges {
		if r.Dim < 0 || r.Dim >= mapmodel.FeatureDims {
			continue
		}
		v := f[r.Dim]
		if v < r.Min || v > r.Max {
			return false
		}
	}
	return true
}
