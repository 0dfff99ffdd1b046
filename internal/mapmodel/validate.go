package mapmodel

import "fmt"

// Validate checks invariants I1-I6 against m and returns the first
// violation found. A non-finite dimension wraps ErrBadDimensions and an
// out-of-range edge target wraps ErrEdgeOutOfRange; the other violations
// are plain errors. A Map failing Validate must never be used (spec.md §7).
func (m *Map) Validate() error {
	n := m.NodeCount()

	// I1
	if len(m.PageType) != n || len(m.Confidence) != n || len(m.Features) != n ||
		len(m.NodeFlags) != n || len(m.ActionSlice) != n {
		return fmt.Errorf("mapmodel: parallel array length mismatch (node_count=%d)", n)
	}

	// I2
	for u, f := range m.Features {
		if !f.AllFinite() {
			return fmt.Errorf("%w: node %d has non-finite dimension", ErrBadDimensions, u)
		}
		pt := m.PageType[u]
		if idx := pt.OneHotIndex(); idx >= 0 && f[idx] != 1.0 {
			return fmt.Errorf("mapmodel: node %d one-hot dims inconsistent with page_type %s", u, pt)
		}
	}

	// I4 (checked before I3 since I3 depends on slice bounds from edge_index)
	if len(m.EdgeIndex) != n+1 {
		return fmt.Errorf("mapmodel: edge_index length %d != node_count+1 (%d)", len(m.EdgeIndex), n+1)
	}
	for i := 1; i < len(m.EdgeIndex); i++ {
		if m.EdgeIndex[i] < m.EdgeIndex[i-1] {
			return fmt.Errorf("mapmodel: edge_index not monotonically non-decreasing at %d", i)
		}
	}
	if int(m.EdgeIndex[n]) != len(m.Edges) {
		return fmt.Errorf("mapmodel: edge_index[node_count]=%d != edge_count=%d", m.EdgeIndex[n], len(m.Edges))
	}

	// I3
	for u := 0; u < n; u++ {
		seen := make(map[edgeKey]struct{})
		for _, e := range m.EdgesFrom(uint32(u)) {
			if int(e.Target) >= n {
				return fmt.Errorf("%w: edge from %d targets %d, node_count=%d", ErrEdgeOutOfRange, u, e.Target, n)
			}
			key := edgeKey{target: e.Target, kind: e.Kind}
			if _, dup := seen[key]; dup {
				return fmt.Errorf("mapmodel: duplicate edge (%d,%d,%d)", u, e.Target, e.Kind)
			}
			seen[key] = struct{}{}
		}
	}

	// I5
	for u := 0; u < n; u++ {
		price := m.Features[u][DimPrice]
		hasPrice := m.NodeFlags[u].Has(FlagHasPrice)
		if hasPrice {
			if price < 0 || isNaNOrInf(price) {
				return fmt.Errorf("mapmodel: node %d has_price but features[48]=%v invalid", u, price)
			}
		} else if price != 0 {
			return fmt.Errorf("mapmodel: node %d lacks has_price but features[48]=%v != 0", u, price)
		}
	}

	// I6
	if m.PrivacyStripped() {
		for u, f := range m.Features {
			for i := SessionDimsStart; i <= SessionDimsEnd; i++ {
				if f[i] != 0 {
					return fmt.Errorf("mapmodel: node %d privacy_stripped but dim %d != 0", u, i)
				}
			}
		}
	}

	// Action table bounds
	for u, s := range m.ActionSlice {
		if int(s.Offset+s.Length) > len(m.Actions) {
			return fmt.Errorf("mapmodel: node %d action_slice out of range (actions=%d)", u, len(m.Actions))
		}
	}

	// I7 is checked by the binary codec at load time, not here: Validate
	// operates on an already-decoded in-memory Map.
	return nil
}

type edgeKey struct {
	target uint32
	kind   EdgeKind
}
