package nav

import (
	"math"
	"sort"

	"github.com/cortexmap/cortex/internal/mapmodel"
)

// BruteForceThreshold is the node count above which Similar switches
// from exhaustive cosine scoring to a KD-tree refinement (spec.md
// §4.10, default 10,000).
const BruteForceThreshold = 10_000

// SimilarMatch is one similar() result row.
type SimilarMatch struct {
	Index      uint32
	Score      float32 // cosine similarity in [-1, 1]
	Confidence float32
}

// Similar returns the k nodes whose feature vectors are most cosine-similar
// to goal. Ties are broken by descending confidence, then ascending node
// index (spec.md §4.10).
func Similar(m *mapmodel.Map, goal mapmodel.Feature, k int) ([]SimilarMatch, error) {
	if k <= 0 {
		return nil, ErrEmptyQuery
	}

	n := m.NodeCount()
	var matches []SimilarMatch

	if n > BruteForceThreshold {
		tree := buildKDTree(m)
		matches = tree.kNearest(m, goal, k)
	} else {
		matches = make([]SimilarMatch, 0, n)
		for i := 0; i < n; i++ {
			matches = append(matches, SimilarMatch{
				Index:      uint32(i),
				Score:      cosine(m.Features[i], goal),
				Confidence: m.Confidence[i],
			})
		}
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		if matches[a].Confidence != matches[b].Confidence {
			return matches[a].Confidence > matches[b].Confidence
		}
		return matches[a].Index < matches[b].Index
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func cosine(a, b mapmodel.Feature) float32 {
	var dot, na, nb float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
