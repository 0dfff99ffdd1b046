package nav

import (
	"math"

	"github.com/cortexmap/cortex/internal/mapmodel"
)

const (
	kmeansMaxIterations = 50
	kmeansSeed          = 1469598103934665603 // FNV offset basis, reused as a fixed PRNG seed for determinism
)

// ClusterResult is cluster()'s output: a per-node assignment and the k
// centroids, cacheable on the Map per spec.md §4.10.
type ClusterResult struct {
	Assignment []uint32
	Centroids  []mapmodel.Feature
}

// Cluster runs k-means over m's feature vectors. Centroid initialization
// is deterministic (a linear-congruential index walk seeded by a fixed
// constant) rather than random, so repeated calls on the same Map
// produce identical clusters.
func Cluster(m *mapmodel.Map, k int) (*ClusterResult, error) {
	n := m.NodeCount()
	if k <= 0 || n == 0 {
		return nil, ErrEmptyQuery
	}
	if k > n {
		k = n
	}

	centroids := make([]mapmodel.Feature, k)
	for i := range centroids {
		centroids[i] = m.Features[deterministicIndex(i, n)]
	}

	assignment := make([]uint32, n)
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			best, bestDist := 0, math.MaxFloat64
			for c, centroid := range centroids {
				d := sqDist(m.Features[i], centroid)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assignment[i] != uint32(best) {
				assignment[i] = uint32(best)
				changed = true
			}
		}

		sums := make([]mapmodel.Feature, k)
		counts := make([]int, k)
		for i := 0; i < n; i++ {
			c := assignment[i]
			counts[c]++
			for d := 0; d < mapmodel.FeatureDims; d++ {
				sums[c][d] += m.Features[i][d]
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < mapmodel.FeatureDims; d++ {
				centroids[c][d] = sums[c][d] / float32(counts[c])
			}
		}

		if !changed {
			break
		}
	}

	return &ClusterResult{Assignment: assignment, Centroids: centroids}, nil
}

func sqDist(a, b mapmodel.Feature) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return sum
}

// deterministicIndex spreads k initial centroid picks across [0, n) as
// distinct indices instead of clustering them near index 0, using a
// fixed-seed multiplicative step coprime with n so the sequence never
// depends on wall-clock time or math/rand.
func deterministicIndex(i, n int) int {
	step := (kmeansSeed % uint64(n)) + 1
	for {
		a, b := step, uint64(n)
		for b != 0 {
			a, b = b, a%b
		}
		if a == 1 {
			break
		}
		step++
	}
	return int((uint64(i) * step) % uint64(n))
}
