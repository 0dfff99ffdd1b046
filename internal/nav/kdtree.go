package nav

import (
	"math"
	"sort"

	"github.com/cortexmap/cortex/internal/mapmodel"
)

// kdNode is one node of a static KD-tree over 128-dim feature vectors,
// built once per large Map and walked for an approximate-nearest-neighbor
// refinement above BruteForceThreshold. Cosine similarity on a fixed-norm
// vector space reduces to Euclidean nearest-neighbor ranking once vectors
// are length-normalized, which is what buildKDTree stores.
type kdNode struct {
	index       uint32
	point       mapmodel.Feature
	axis        int
	left, right *kdNode
}

type kdTree struct {
	root *kdNode
}

func buildKDTree(m *mapmodel.Map) *kdTree {
	idxs := make([]uint32, m.NodeCount())
	for i := range idxs {
		idxs[i] = uint32(i)
	}
	return &kdTree{root: build(idxs, m, 0)}
}

func build(idxs []uint32, m *mapmodel.Map, depth int) *kdNode {
	if len(idxs) == 0 {
		return nil
	}
	axis := depth % mapmodel.FeatureDims
	sort.Slice(idxs, func(a, b int) bool {
		return m.Features[idxs[a]][axis] < m.Features[idxs[b]][axis]
	})
	mid := len(idxs) / 2
	node := &kdNode{
		index: idxs[mid],
		point: normalize(m.Features[idxs[mid]]),
		axis:  axis,
	}
	node.left = build(idxs[:mid], m, depth+1)
	node.right = build(idxs[mid+1:], m, depth+1)
	return node
}

func normalize(f mapmodel.Feature) mapmodel.Feature {
	var sumSq float64
	for _, v := range f {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return f
	}
	norm := float32(1.0 / math.Sqrt(sumSq))
	var out mapmodel.Feature
	for i, v := range f {
		out[i] = v * norm
	}
	return out
}

// kNearest walks the tree collecting candidates scored by cosine
// similarity to goal, descending by normalized coordinates. The near
// branch is always walked and a far branch only while fewer than 4k
// candidates are held, so the result is approximate and may hold more
// than k entries; Similar sorts and truncates it.
func (t *kdTree) kNearest(m *mapmodel.Map, goal mapmodel.Feature, k int) []SimilarMatch {
	goalN := normalize(goal)
	best := make([]SimilarMatch, 0, k)

	var walk func(n *kdNode)
	walk = func(n *kdNode) {
		if n == nil {
			return
		}
		score := cosine(m.Features[n.index], goal)
		best = append(best, SimilarMatch{Index: n.index, Score: score, Confidence: m.Confidence[n.index]})

		diff := goalN[n.axis] - n.point[n.axis]
		near, far := n.left, n.right
		if diff > 0 {
			near, far = n.right, n.left
		}
		walk(near)
		// Explore the far branch too: with 128 dims a single-axis bound is
		// a weak pruning signal, so this stays an approximate refinement
		// rather than an exact KNN — acceptable for spec.md §4.10's "KD-tree
		// or IVF refinement" wording, which only requires sublinear typical
		// behavior above the brute-force threshold, not exactness.
		if len(best) < k*4 {
			walk(far)
		}
	}
	walk(t.root)
	return best
}
