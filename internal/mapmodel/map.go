package mapmodel

import "time"

// FormatVersion is the current binary format_version written into new
// Maps' headers.
const FormatVersion uint16 = 1

// Magic is the 4-byte header signature.
var Magic = [4]byte{'C', 'T', 'X', 'M'}

// Map is a sealed graph for a single registered domain. It is built by
// internal/mapbuilder and is immutable once constructed; all fields are
// exported for the builder and binary codec but callers should treat a
// Map as read-only.
type Map struct {
	Domain        string
	CreatedAt     time.Time
	FormatVersion uint16
	Flags         MapFlags
	DomainHash    uint64

	// Parallel arrays, one entry per node index u in [0, NodeCount).
	URL         []string
	PageType    []PageType
	Confidence  []float32
	Features    []Feature
	NodeFlags   []NodeFlags
	ActionSlice []ActionSlice

	// CSR adjacency: EdgeIndex has NodeCount+1 entries; node u's edges are
	// Edges[EdgeIndex[u]:EdgeIndex[u+1]].
	EdgeIndex []uint32
	Edges     []Edge

	Actions []Action

	// Optional k-means clustering result; nil unless MapFlagHasClusters.
	ClusterID []uint32
	Centroid  []Feature
}

// NodeCount returns the number of nodes in the Map.
func (m *Map) NodeCount() int { return len(m.URL) }

// EdgeCount returns the number of edges in the Map.
func (m *Map) EdgeCount() int { return len(m.Edges) }

// ActionCount returns the number of actions in the flat action table.
func (m *Map) ActionCount() int { return len(m.Actions) }

// EdgesFrom returns node u's outgoing edge slice.
func (m *Map) EdgesFrom(u uint32) []Edge {
	if int(u)+1 >= len(m.EdgeIndex) {
		return nil
	}
	return m.Edges[m.EdgeIndex[u]:m.EdgeIndex[u+1]]
}

// ResolveEdgeAction returns the Action required to traverse e, which must
// be one of source's own edges. Edge.ActionRef is relative to source's
// ActionSlice.Offset so it fits a single byte regardless of graph size.
func (m *Map) ResolveEdgeAction(source uint32, e Edge) (Action, bool) {
	if !e.HasAction {
		return Action{}, false
	}
	idx := m.ActionSlice[source].Offset + uint32(e.ActionRef)
	if int(idx) >= len(m.Actions) {
		return Action{}, false
	}
	return m.Actions[idx], true
}

// ActionsFor returns node u's discovered actions.
func (m *Map) ActionsFor(u uint32) []Action {
	if int(u) >= len(m.ActionSlice) {
		return nil
	}
	s := m.ActionSlice[u]
	if int(s.Offset+s.Length) > len(m.Actions) {
		return nil
	}
	return m.Actions[s.Offset : s.Offset+s.Length]
}

// Partial reports whether this Map was sealed early due to a budget
// deadline (spec.md §5 "Cancellation & timeouts").
func (m *Map) Partial() bool { return m.Flags.Has(MapFlagPartial) }

// PrivacyStripped reports whether session dimensions were zeroed for
// export (spec.md I6).
func (m *Map) PrivacyStripped() bool { return m.Flags.Has(MapFlagPrivacyStripped) }
