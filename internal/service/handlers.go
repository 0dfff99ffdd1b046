package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cortexmap/cortex/internal/mapmodel"
	"github.com/cortexmap/cortex/internal/mapper"
	"github.com/cortexmap/cortex/internal/nav"
)

type mapParams struct {
	Domain        string `json:"domain"`
	MaxNodes      int    `json:"max_nodes"`
	MaxTimeMS     int    `json:"max_time_ms"`
	RespectRobots *bool  `json:"respect_robots"`
	NoBrowser     bool   `json:"no_browser"`
	Fresh         bool   `json:"fresh"`
}

type mapResult struct {
	Domain    string `json:"domain"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
	Partial   bool   `json:"partial"`
	MapRef    string `json:"map_ref"`
}

func (s *Service) handleMap(ctx context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p mapParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, newError(CodeMalformedRequest, err.Error())
	}
	if p.Domain == "" {
		return nil, newError(CodeBadQuery, "domain is required")
	}

	respectRobots := true
	if p.RespectRobots != nil {
		respectRobots = *p.RespectRobots
	}

	if !p.Fresh {
		if m, fresh, exists := s.cache.Get(p.Domain); exists && fresh {
			if s.metrics != nil {
				s.metrics.RecordCacheHit()
			}
			return mapResult{Domain: m.Domain, NodeCount: m.NodeCount(), EdgeCount: m.EdgeCount(), Partial: m.Partial(), MapRef: m.Domain}, nil
		}
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss()
	}

	m, err := s.mapper.Map(ctx, mapper.Request{
		Domain:        p.Domain,
		MaxNodes:      p.MaxNodes,
		MaxTimeMS:     p.MaxTimeMS,
		RespectRobots: respectRobots,
		NoBrowser:     p.NoBrowser,
	})
	if err != nil {
		return nil, classifyMapperError(err)
	}

	s.cache.Put(m.Domain, m, estimateSize(m))
	if s.metrics != nil {
		s.metrics.RecordMapSealed(m.Partial())
		s.metrics.SetCacheBytes(s.cache.UsedBytes())
	}
	return mapResult{Domain: m.Domain, NodeCount: m.NodeCount(), EdgeCount: m.EdgeCount(), Partial: m.Partial(), MapRef: m.Domain}, nil
}

type queryParams struct {
	Domain   string             `json:"domain"`
	PageType []string           `json:"page_type"`
	Features map[string]rangeIn `json:"features"`
	Flags    uint32             `json:"flags"`
	SortBy   *int               `json:"sort_by"`
	Order    string             `json:"order"`
	Limit    int                `json:"limit"`
}

type rangeIn struct {
	Lt *float32 `json:"lt"`
	Gt *float32 `json:"gt"`
}

type nodeMatchOut struct {
	Index      uint32            `json:"index"`
	URL        string            `json:"url"`
	PageType   string            `json:"page_type"`
	Confidence float32           `json:"confidence"`
	Features   mapmodel.Feature  `json:"features_subset"`
	Similarity *float32          `json:"similarity,omitempty"`
}

func (s *Service) handleQuery(_ context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p queryParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, newError(CodeMalformedRequest, err.Error())
	}
	idx, cerr := s.indexFor(p.Domain)
	if cerr != nil {
		return nil, cerr
	}

	q := nav.NodeQuery{OrderByDim: -1, Limit: p.Limit, Flags: mapmodel.NodeFlags(p.Flags)}
	for _, name := range p.PageType {
		pt, ok := mapmodel.ParsePageType(name)
		if !ok {
			return nil, newError(CodeBadQuery, "unknown page_type: "+name)
		}
		q.PageTypes = append(q.PageTypes, pt)
	}
	for dimStr, r := range p.Features {
		dim, ok := parseDim(dimStr)
		if !ok {
			return nil, newError(CodeBadQuery, "unknown feature dimension: "+dimStr)
		}
		dr := nav.DimRange{Dim: dim, Min: -3.4e38, Max: 3.4e38}
		if r.Lt != nil {
			dr.Max = *r.Lt
		}
		if r.Gt != nil {
			dr.Min = *r.Gt
		}
		q.Ranges = append(q.Ranges, dr)
	}
	if p.SortBy != nil {
		q.OrderByDim = *p.SortBy
	}
	if p.Order == "desc" {
		q.Direction = nav.Descending
	}

	matches := idx.Filter(q)
	return struct {
		Matches []nodeMatchOut `json:"matches"`
	}{toNodeMatchOut(matches)}, nil
}

type pathfindParams struct {
	Domain     string `json:"domain"`
	From       uint32 `json:"from"`
	To         uint32 `json:"to"`
	Minimize   string `json:"minimize"`
	AvoidFlags uint32 `json:"avoid_flags"`
}

func (s *Service) handlePathfind(_ context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p pathfindParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, newError(CodeMalformedRequest, err.Error())
	}
	m, cerr := s.mapFor(p.Domain)
	if cerr != nil {
		return nil, cerr
	}

	c := nav.PathConstraints{AvoidFlags: mapmodel.NodeFlags(p.AvoidFlags)}
	if p.Minimize == "weight" {
		c.Minimize = nav.MinimizeWeight
	}

	path, err := nav.Pathfind(m, p.From, p.To, c)
	if err != nil {
		switch err {
		case nav.ErrNodeNotFound:
			return nil, newError(CodeNodeNotFound, err.Error())
		case nav.ErrNoPath:
			return nil, newError(CodeNoPath, err.Error())
		default:
			return nil, newError(CodeInternal, err.Error())
		}
	}
	return path, nil
}

type similarParams struct {
	Domain     string    `json:"domain"`
	Source     *uint32   `json:"source"`
	GoalVector []float32 `json:"goal_vector"`
	K          int       `json:"k"`
}

func (s *Service) handleSimilar(_ context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p similarParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, newError(CodeMalformedRequest, err.Error())
	}
	m, cerr := s.mapFor(p.Domain)
	if cerr != nil {
		return nil, cerr
	}

	k := p.K
	if k <= 0 {
		k = 10
	}

	var goal mapmodel.Feature
	switch {
	case p.GoalVector != nil:
		if len(p.GoalVector) != mapmodel.FeatureDims {
			return nil, newError(CodeDimensionMismatch, "goal_vector must have 128 dimensions")
		}
		copy(goal[:], p.GoalVector)
	case p.Source != nil:
		if int(*p.Source) >= m.NodeCount() {
			return nil, newError(CodeNodeNotFound, "source node out of range")
		}
		goal = m.Features[*p.Source]
	default:
		return nil, newError(CodeBadQuery, "either source or goal_vector is required")
	}

	matches, err := nav.Similar(m, goal, k)
	if err != nil {
		return nil, newError(CodeDimensionMismatch, err.Error())
	}

	out := make([]nodeMatchOut, 0, len(matches))
	for _, sm := range matches {
		score := sm.Score
		out = append(out, nodeMatchOut{
			Index:      sm.Index,
			URL:        m.URL[sm.Index],
			PageType:   m.PageType[sm.Index].String(),
			Confidence: sm.Confidence,
			Features:   m.Features[sm.Index],
			Similarity: &score,
		})
	}
	return struct {
		Matches []nodeMatchOut `json:"matches"`
	}{out}, nil
}

type statusResult struct {
	Version     string   `json:"version"`
	UptimeMS    int64    `json:"uptime_ms"`
	CachedMaps  []string `json:"cached_maps"`
	MemoryBytes int64    `json:"memory_bytes"`
}

func (s *Service) handleStatus(_ context.Context, _ json.RawMessage) (interface{}, *Error) {
	return statusResult{
		Version:     Version,
		UptimeMS:    time.Since(s.startedAt).Milliseconds(),
		CachedMaps:  s.cache.Domains(),
		MemoryBytes: s.cache.UsedBytes(),
	}, nil
}

type clearParams struct {
	Domain string `json:"domain"`
}

func (s *Service) handleClear(_ context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p clearParams
	_ = json.Unmarshal(raw, &p)
	if p.Domain == "" {
		s.cache.Clear()
	} else {
		s.cache.Delete(p.Domain)
	}
	return struct {
		Cleared bool `json:"cleared"`
	}{true}, nil
}

func toNodeMatchOut(matches []nav.NodeMatch) []nodeMatchOut {
	out := make([]nodeMatchOut, 0, len(matches))
	for _, nm := range matches {
		out = append(out, nodeMatchOut{
			Index:      nm.Index,
			URL:        nm.URL,
			PageType:   nm.PageType.String(),
			Confidence: nm.Confidence,
			Features:   nm.Features,
		})
	}
	return out
}

func estimateSize(m *mapmodel.Map) int64 {
	return int64(m.NodeCount())*mapmodel.FeatureDims*4 + int64(m.EdgeCount())*16
}
