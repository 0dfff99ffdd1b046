package browser

import (
	"context"
	"fmt"

	"github.com/cortexmap/cortex/internal/acquisition/extract"
	"github.com/cortexmap/cortex/internal/acquisition/patterndb"
)

// Rendered bundles the browser-fallback outcome: the re-extracted
// structured page plus any pattern-engine field matches found against
// the rendered DOM, so the Mapper can merge them over the static-HTML
// pass's (incomplete) results.
type Rendered struct {
	Page     *extract.StructuredPage
	Fields   []patterndb.FieldMatch
	HTML     string
	Platform patterndb.Platform
}

// Render fetches rawURL through a pooled Chrome tab, waits for
// client-side rendering to settle, then re-runs the static Layer 1/1.5
// extractors against the resulting DOM. It returns ErrPoolUnavailable
// unchanged when the pool could not be started, so callers can treat
// that as "skip the browser layer" rather than a hard failure.
func (p *Pool) Render(ctx context.Context, rawURL string, existingFields map[string]float32) (*Rendered, error) {
	html, err := p.render(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	root, err := extract.ParseDOM([]byte(html))
	if err != nil {
		return nil, fmt.Errorf("browser: parse rendered dom: %w", err)
	}
	page := extract.Extract(root, rawURL)

	platform := patterndb.DetectPlatform([]byte(html), nil)
	fields := patterndb.Apply([]byte(html), platform, existingFields)

	return &Rendered{Page: page, Fields: fields, HTML: html, Platform: platform}, nil
}
