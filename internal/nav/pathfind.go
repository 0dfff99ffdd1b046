package nav

import (
	"container/heap"

	"github.com/cortexmap/cortex/internal/mapmodel"
)

// Minimize selects pathfind's cost function.
type Minimize int

const (
	MinimizeHops Minimize = iota
	MinimizeWeight
)

// PathConstraints is the pathfind() request shape (spec.md §4.10).
type PathConstraints struct {
	Minimize   Minimize
	AvoidFlags mapmodel.NodeFlags // nodes with any of these flags are pruned
}

// Path is pathfind's result.
type Path struct {
	Nodes           []uint32          `json:"nodes"`
	TotalWeight     float32           `json:"total_weight"`
	Hops            int               `json:"hops"`
	RequiredActions []mapmodel.Action `json:"required_actions"`
}

type pqItem struct {
	node uint32
	dist float64
	hops int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(*pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// Pathfind runs Dijkstra from "from" to "to" over m's edges, honoring
// constraints. Returns ErrNodeNotFound if either endpoint is out of
// range, ErrNoPath if to is unreachable under the given constraints.
func Pathfind(m *mapmodel.Map, from, to uint32, c PathConstraints) (*Path, error) {
	n := m.NodeCount()
	if int(from) >= n || int(to) >= n {
		return nil, ErrNodeNotFound
	}
	if nodeBlocked(m, from, c) || nodeBlocked(m, to, c) {
		return nil, ErrNoPath
	}

	dist := make([]float64, n)
	hops := make([]int, n)
	prevNode := make([]int64, n)
	prevEdge := make([]int, n)
	visited := make([]bool, n)
	for i := range dist {
		dist[i] = -1
		prevNode[i] = -1
	}
	dist[from] = 0

	pq := &priorityQueue{{node: from, dist: 0, hops: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		u := item.node
		if visited[u] {
			continue
		}
		visited[u] = true
		if u == to {
			break
		}

		for ei, e := range m.EdgesFrom(u) {
			v := e.Target
			if nodeBlocked(m, v, c) {
				continue
			}
			step := edgeCost(e, c.Minimize)
			nd := dist[u] + step
			if dist[v] == -1 || nd < dist[v] {
				dist[v] = nd
				hops[v] = hops[u] + 1
				prevNode[v] = int64(u)
				prevEdge[v] = ei
				heap.Push(pq, &pqItem{node: v, dist: nd, hops: hops[v]})
			}
		}
	}

	if dist[to] == -1 {
		return nil, ErrNoPath
	}

	var nodes []uint32
	var actions []mapmodel.Action
	cur := int64(to)
	for cur != -1 {
		u := uint32(cur)
		nodes = append([]uint32{u}, nodes...)
		if prevNode[u] != -1 {
			prevU := uint32(prevNode[u])
			e := m.EdgesFrom(prevU)[prevEdge[u]]
			if a, ok := m.ResolveEdgeAction(prevU, e); ok {
				actions = append([]mapmodel.Action{a}, actions...)
			}
		}
		cur = prevNode[u]
	}

	return &Path{
		Nodes:           nodes,
		TotalWeight:     float32(dist[to]),
		Hops:            hops[to],
		RequiredActions: actions,
	}, nil
}

func nodeBlocked(m *mapmodel.Map, u uint32, c PathConstraints) bool {
	if c.AvoidFlags == 0 {
		return false
	}
	return m.NodeFlags[u]&c.AvoidFlags != 0
}

func edgeCost(e mapmodel.Edge, minimize Minimize) float64 {
	if minimize == MinimizeHops {
		return 1
	}
	w := e.Weight
	if w <= 0 {
		w = 1
	}
	return float64(w)
}
