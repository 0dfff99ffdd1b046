// Package nav implements Cortex's Navigation Engine (spec.md §4.10):
// filter, pathfind, similar, and cluster queries over a sealed
// mapmodel.Map.
package nav

import "errors"

var (
	// ErrNodeNotFound is returned when a query names a node index or URL
	// absent from the Map.
	ErrNodeNotFound = errors.New("nav: node not found")
	// ErrDimensionMismatch is returned when a caller-supplied goal vector
	// does not have mapmodel.FeatureDims entries.
	ErrDimensionMismatch = errors.New("nav: dimension mismatch")
	// ErrNoPath is returned by pathfind when from cannot reach to.
	ErrNoPath = errors.New("nav: no path")
	// ErrEmptyQuery is returned by Similar when k <= 0 and by Cluster
	// when k <= 0 or the Map has no nodes.
	ErrEmptyQuery = errors.New("nav: empty query")
)
