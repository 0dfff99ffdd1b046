package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmap/cortex/internal/mapmodel"
)

// buildTestMap assembles a tiny 4-node Map by hand: 0 -> 1 -> 2, 0 -> 3,
// with distinct feature vectors for similarity/cluster tests.
func buildTestMap() *mapmodel.Map {
	m := &mapmodel.Map{
		URL:        []string{"https://e.com/", "https://e.com/a", "https://e.com/b", "https://e.com/c"},
		PageType:   []mapmodel.PageType{mapmodel.PageTypeHome, mapmodel.PageTypeArticle, mapmodel.PageTypeArticle, mapmodel.PageTypeOther},
		Confidence: []float32{0.9, 0.8, 0.7, 0.5},
		Features:   make([]mapmodel.Feature, 4),
		NodeFlags:  make([]mapmodel.NodeFlags, 4),
		ActionSlice: make([]mapmodel.ActionSlice, 4),
	}
	m.Features[0][16], m.Features[0][17] = 10, 1
	m.Features[1][16], m.Features[1][17] = 12, 5
	m.Features[2][16], m.Features[2][17] = 11, 1
	m.Features[3][16], m.Features[3][17] = 100, 50

	m.EdgeIndex = []uint32{0, 2, 3, 3, 3}
	m.Edges = []mapmodel.Edge{
		{Target: 1, Weight: 1, Kind: mapmodel.EdgeKindLink},
		{Target: 3, Weight: 1, Kind: mapmodel.EdgeKindLink},
		{Target: 2, Weight: 1, Kind: mapmodel.EdgeKindLink},
	}
	return m
}

func TestFilterByPageType(t *testing.T) {
	m := buildTestMap()
	idx := BuildIndex(m)
	matches := idx.Filter(NodeQuery{PageTypes: []mapmodel.PageType{mapmodel.PageTypeArticle}, OrderByDim: -1})
	require.Len(t, matches, 2)
	assert.Equal(t, uint32(1), matches[0].Index)
	assert.Equal(t, uint32(2), matches[1].Index)
}

func TestFilterByRange(t *testing.T) {
	m := buildTestMap()
	idx := BuildIndex(m)
	matches := idx.Filter(NodeQuery{Ranges: []DimRange{{Dim: 16, Min: 0, Max: 15}}, OrderByDim: -1})
	require.Len(t, matches, 3)
}

func TestFilterOrderByDimDescending(t *testing.T) {
	m := buildTestMap()
	idx := BuildIndex(m)
	matches := idx.Filter(NodeQuery{OrderByDim: 16, Direction: Descending})
	require.Len(t, matches, 4)
	assert.Equal(t, uint32(3), matches[0].Index)
}

func TestFilterLimitClamps(t *testing.T) {
	m := buildTestMap()
	idx := BuildIndex(m)
	matches := idx.Filter(NodeQuery{OrderByDim: -1, Limit: 2})
	assert.Len(t, matches, 2)
}

// TestFilterPriceRangeOnLargeSyntheticMap mirrors spec.md §8 scenario 5:
// 10,000 synthetic product nodes with price (feature dim 48) uniform in
// [0, 1000]; filtering to price < 300 with limit 20 must return exactly
// 20 nodes, every one under the threshold, ordered by ascending index.
func TestFilterPriceRangeOnLargeSyntheticMap(t *testing.T) {
	const n = 10_000
	m := &mapmodel.Map{
		URL:         make([]string, n),
		PageType:    make([]mapmodel.PageType, n),
		Confidence:  make([]float32, n),
		Features:    make([]mapmodel.Feature, n),
		NodeFlags:   make([]mapmodel.NodeFlags, n),
		ActionSlice: make([]mapmodel.ActionSlice, n),
	}
	for i := 0; i < n; i++ {
		m.URL[i] = "https://shop.example/products/" + string(rune('a'+i%26))
		m.PageType[i] = mapmodel.PageTypeProductDetail
		m.Confidence[i] = 0.9
		m.Features[i][48] = float32(i%1000) + 0.5 // deterministic spread over [0.5, 999.5]
	}
	idx := BuildIndex(m)

	matches := idx.Filter(NodeQuery{
		PageTypes:  []mapmodel.PageType{mapmodel.PageTypeProductDetail},
		Ranges:     []DimRange{{Dim: 48, Min: -3.4e38, Max: 300}},
		OrderByDim: -1,
		Limit:      20,
	})

	require.Len(t, matches, 20)
	for i, nm := range matches {
		assert.Less(t, nm.Features[48], float32(300))
		if i > 0 {
			assert.Less(t, matches[i-1].Index, nm.Index)
		}
	}
}

func TestPathfindFindsShortestHops(t *testing.T) {
	m := buildTestMap()
	p, err := Pathfind(m, 0, 2, PathConstraints{Minimize: MinimizeHops})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, p.Nodes)
	assert.Equal(t, 2, p.Hops)
}

func TestPathfindNoPath(t *testing.T) {
	m := buildTestMap()
	_, err := Pathfind(m, 3, 0, PathConstraints{})
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestPathfindNodeNotFound(t *testing.T) {
	m := buildTestMap()
	_, err := Pathfind(m, 0, 99, PathConstraints{})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestPathfindAvoidFlags(t *testing.T) {
	m := buildTestMap()
	m.NodeFlags[1] = mapmodel.FlagBlocked
	_, err := Pathfind(m, 0, 2, PathConstraints{AvoidFlags: mapmodel.FlagBlocked})
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestSimilarOrdersByCosineThenConfidence(t *testing.T) {
	m := buildTestMap()
	goal := mapmodel.Feature{}
	goal[16], goal[17] = 11, 1
	matches, err := Similar(m, goal, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, uint32(2), matches[0].Index)
}

func TestSimilarRejectsNonPositiveK(t *testing.T) {
	m := buildTestMap()
	_, err := Similar(m, mapmodel.Feature{}, 0)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestClusterIsDeterministic(t *testing.T) {
	m := buildTestMap()
	r1, err := Cluster(m, 2)
	require.NoError(t, err)
	r2, err := Cluster(m, 2)
	require.NoError(t, err)
	assert.Equal(t, r1.Assignment, r2.Assignment)
}

func TestClusterSeparatesOutlier(t *testing.T) {
	m := buildTestMap()
	r, err := Cluster(m, 2)
	require.NoError(t, err)
	// node 3 has a far-away feature value and should land in its own cluster.
	assert.NotEqual(t, r.Assignment[3], r.Assignment[0])
}
